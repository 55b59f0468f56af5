// Package pod reads plain-old-data values straight out of remote memory using
// their in-memory layout.
package pod

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"gokbd/process"
)

var ErrNotPOD = errors.New("type contains pointers; not POD-safe")

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// ReadT reads sizeof(T) bytes at addr into a new T.
func ReadT[T any](r process.MemoryReader, ctx process.ProcessContext, addr process.ProcessMemoryAddress) (T, error) {
	var zero T
	size := SizeOf[T]()
	if size == 0 {
		return zero, errors.New("ReadT: size of T is zero")
	}
	data, err := r.ReadMemory(ctx, addr, size)
	if err != nil {
		return zero, err
	}
	return FromBytes[T](data)
}

// ReadSliceT reads count consecutive values of T in a single read.
func ReadSliceT[T any](r process.MemoryReader, ctx process.ProcessContext, addr process.ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, errors.New("ReadSliceT: count must be positive")
	}
	size := SizeOf[T]()
	if size == 0 || count == 0 {
		return []T{}, nil
	}
	data, err := r.ReadMemory(ctx, addr, size*process.ProcessMemorySize(count))
	if err != nil {
		return nil, err
	}

	out := make([]T, count)
	for i := range out {
		v, err := FromBytes[T](data[i*int(size):])
		if err != nil {
			return nil, fmt.Errorf("ReadSliceT: element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// FromBytes copies the first sizeof(T) bytes of data into a new T.
// T and all of its fields must be free of pointers.
func FromBytes[T any](data []byte) (T, error) {
	var tmp T
	if typeHasPointers(reflect.TypeOf(tmp)) {
		return tmp, ErrNotPOD
	}
	size := int(unsafe.Sizeof(tmp))
	if len(data) < size {
		return tmp, fmt.Errorf("buffer too small: %d bytes, want %d", len(data), size)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&tmp)), size), data[:size])
	return tmp, nil
}

func typeHasPointers(rt reflect.Type) bool {
	if rt == nil {
		return true
	}
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
