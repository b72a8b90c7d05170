// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reclaim

// pad is inserted between hot fields of per-worker structures to keep them
// on separate cache lines and avoid false sharing.
type pad [64]byte
