// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/yunshuwu/parlaylib/internal/reclaim"
)

// Every AtomicPtr[T] instantiated for the same T shares one reclamation
// engine sized by the worker count, rather than each cell carrying its
// own. The exported constructors take no engine parameter, which rules
// out threading an engine handle through explicitly; engines is the
// closest realization available without changing that surface — a
// lazily-built, per-T engine looked up by type identity instead of by an
// explicit parameter. See DESIGN.md.
//
// Sharing by T, not by instance, also matters operationally: a box's
// destructor can cascade into a struct field that is itself an AtomicPtr
// of the same T (a linked node's next pointer, see box.go's releaser
// interface). That cascade only reconciles correctly if every cell of
// that T retires into the same engine a later RetireAndFlush pass can
// reach.
var engines sync.Map // map[reflect.Type]*reclaim.Engine

func sharedEngine[T any]() *reclaim.Engine {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := engines.Load(typ); ok {
		return v.(*reclaim.Engine)
	}
	e := reclaim.New(releaseBox[T], reclaim.DefaultConfig())
	actual, _ := engines.LoadOrStore(typ, e)
	return actual.(*reclaim.Engine)
}

func releaseBox[T any](p unsafe.Pointer) {
	b := boxFromPtr[T](p)
	if b.releaseRefs(1) == 1 {
		b.destruct()
	}
}
