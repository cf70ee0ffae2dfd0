// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package hash

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CircularMarker replaces a value that is already being serialised higher up
// on the current path.
const CircularMarker = "[Circular]"

// maxSafeInteger is the largest integer every JSON consumer represents exactly.
const maxSafeInteger = 1<<53 - 1

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var (
	timeType      = reflect.TypeOf(time.Time{})
	bigIntPtrType = reflect.TypeOf((*big.Int)(nil))
	numberType    = reflect.TypeOf(json.Number(""))
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// Canonical returns the stable JSON text used as hashing input.
func Canonical(value any) ([]byte, error) {
	c := &canonicalizer{onPath: make(map[visitKey]bool)}
	var buf bytes.Buffer
	if err := c.write(&buf, reflect.ValueOf(value), "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type canonicalizer struct {
	onPath map[visitKey]bool
}

func (c *canonicalizer) write(buf *bytes.Buffer, v reflect.Value, path string) error {
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	if !v.CanInterface() {
		if v.Type() == timeType || v.Type() == bigIntPtrType {
			return &Error{Path: path, Reason: fmt.Sprintf("unexported %s value", v.Type())}
		}
		return c.writeKind(buf, v, path)
	}

	switch v.Type() {
	case timeType:
		writeString(buf, v.Interface().(time.Time).UTC().Format(isoMillis))
		return nil
	case bigIntPtrType:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		writeString(buf, v.Interface().(*big.Int).String())
		return nil
	case numberType:
		return writeNumberLiteral(buf, v.String(), path)
	}

	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface && v.Type().Implements(marshalerType) {
		return c.writeMarshaler(buf, v, path)
	}
	return c.writeKind(buf, v, path)
}

func (c *canonicalizer) writeKind(buf *bytes.Buffer, v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeInt(buf, v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		writeUint(buf, v.Uint())
	case reflect.Float32, reflect.Float64:
		bits := 64
		if v.Kind() == reflect.Float32 {
			bits = 32
		}
		return writeFloat(buf, v.Float(), bits, path)
	case reflect.String:
		writeString(buf, v.String())
	case reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return c.write(buf, v.Elem(), path)
	case reflect.Pointer:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		if v.CanInterface() && v.Type().Implements(marshalerType) && v.Elem().Type() != timeType {
			return c.writeMarshaler(buf, v, path)
		}
		return c.guard(buf, v, 0, path, func() error {
			return c.write(buf, v.Elem(), path)
		})
	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			writeString(buf, base64.StdEncoding.EncodeToString(v.Bytes()))
			return nil
		}
		return c.guard(buf, v, v.Len(), path, func() error {
			return c.writeList(buf, v, path)
		})
	case reflect.Array:
		return c.writeList(buf, v, path)
	case reflect.Map:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return c.guard(buf, v, v.Len(), path, func() error {
			return c.writeMap(buf, v, path)
		})
	case reflect.Struct:
		return c.writeStruct(buf, v, path)
	default:
		return &Error{Path: path, Reason: fmt.Sprintf("unsupported value of kind %s", v.Kind())}
	}
	return nil
}

// guard emits CircularMarker instead of descending into a reference that is
// already on the current path.
func (c *canonicalizer) guard(buf *bytes.Buffer, v reflect.Value, n int, path string, fn func() error) error {
	key := visitKey{ptr: v.Pointer(), typ: v.Type(), len: n}
	if c.onPath[key] {
		writeString(buf, CircularMarker)
		return nil
	}
	c.onPath[key] = true
	defer delete(c.onPath, key)
	return fn()
}

func (c *canonicalizer) writeList(buf *bytes.Buffer, v reflect.Value, path string) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := c.write(buf, v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func (c *canonicalizer) writeMap(buf *bytes.Buffer, v reflect.Value, path string) error {
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key(), path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{key: key, value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, e.key)
		buf.WriteByte(':')
		if err := c.write(buf, e.value, path+"."+e.key); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (c *canonicalizer) writeStruct(buf *bytes.Buffer, v reflect.Value, path string) error {
	fields := make(map[string]reflect.Value)
	collectFields(v, fields)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, name)
		buf.WriteByte(':')
		if err := c.write(buf, fields[name], path+"."+name); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (c *canonicalizer) writeMarshaler(buf *bytes.Buffer, v reflect.Value, path string) error {
	raw, err := v.Interface().(json.Marshaler).MarshalJSON()
	if err != nil {
		return &Error{Path: path, Reason: fmt.Sprintf("marshal %s: %v", v.Type(), err)}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return &Error{Path: path, Reason: fmt.Sprintf("decode %s: %v", v.Type(), err)}
	}
	return c.write(buf, reflect.ValueOf(decoded), path)
}

// collectFields gathers exported struct fields under their JSON names.
// Fields of the outer struct shadow promoted fields of embedded structs.
func collectFields(v reflect.Value, out map[string]reflect.Value) {
	t := v.Type()
	var embedded []reflect.Value
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := v.Field(i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if fv.Kind() == reflect.Pointer {
					if fv.IsNil() {
						continue
					}
					fv = fv.Elem()
				}
				embedded = append(embedded, fv)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if strings.Contains(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		out[name] = fv
	}
	for _, ev := range embedded {
		promoted := make(map[string]reflect.Value)
		collectFields(ev, promoted)
		for name, fv := range promoted {
			if _, exists := out[name]; !exists {
				out[name] = fv
			}
		}
	}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func mapKey(k reflect.Value, path string) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", &Error{Path: path, Reason: fmt.Sprintf("unsupported map key type %s", k.Type())}
}

func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a plain string cannot fail.
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

func writeInt(buf *bytes.Buffer, n int64) {
	if n > maxSafeInteger || n < -maxSafeInteger {
		writeString(buf, strconv.FormatInt(n, 10))
		return
	}
	buf.WriteString(strconv.FormatInt(n, 10))
}

func writeUint(buf *bytes.Buffer, n uint64) {
	if n > maxSafeInteger {
		writeString(buf, strconv.FormatUint(n, 10))
		return
	}
	buf.WriteString(strconv.FormatUint(n, 10))
}

func writeFloat(buf *bytes.Buffer, f float64, bits int, path string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &Error{Path: path, Reason: fmt.Sprintf("non-finite number %v", f)}
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger {
		writeInt(buf, int64(f))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

// writeNumberLiteral normalises a json.Number so that "1", "1.0" and "1e0"
// serialise identically.
func writeNumberLiteral(buf *bytes.Buffer, s, path string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		writeInt(buf, n)
		return nil
	}
	if n, ok := new(big.Int).SetString(s, 10); ok {
		writeString(buf, n.String())
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &Error{Path: path, Reason: fmt.Sprintf("invalid number %q", s)}
	}
	return writeFloat(buf, f, 64, path)
}
