// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

type settings struct {
	HexMode         bool   `doc:"hexadecimal input mode"`
	VerboseAssembly bool   `doc:"log assembler passes when compiling"`
	MemDumpBytes    int    `doc:"default number of memory bytes to dump"`
	DisasmLines     int    `doc:"default number of lines to disassemble"`
	MaxStepLines    int    `doc:"max lines to disassemble when stepping"`
	MaxRunSteps     int    `doc:"instructions executed before run gives up"`
	NextDisasmAddr  uint16 `doc:"offset of next disassembly"`
	NextMemDumpAddr uint32 `doc:"physical address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		HexMode:         false,
		VerboseAssembly: false,
		MemDumpBytes:    64,
		DisasmLines:     10,
		MaxStepLines:    20,
		MaxRunSteps:     1000000,
		NextDisasmAddr:  0,
		NextMemDumpAddr: 0,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	errInvalidType = errors.New("invalid type")
	errOutOfRange  = errors.New("value out of range")
)

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.Uint16:
			s = fmt.Sprintf("    %-16s 0x%04X", f.name, uint16(v.Uint()))
		case reflect.Uint32:
			s = fmt.Sprintf("    %-16s 0x%05X", f.name, uint32(v.Uint()))
		default:
			s = fmt.Sprintf("    %-16s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, f.doc)
	}
}

// Name returns the canonical name of the setting matching key.
func (s *settings) Name(key string) (string, error) {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return "", err
	}
	return f.name, nil
}

func (s *settings) Kind(key string) reflect.Kind {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

// Set assigns value to the setting matching key. Integer values are
// range-checked against the field's type.
func (s *settings) Set(key string, value any) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.Bool) != (vIn.Kind() == reflect.Bool) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errInvalidType
	}

	vOut := reflect.ValueOf(s).Elem().Field(f.index)
	if vIn.CanInt() {
		n := vIn.Int()
		switch {
		case n < 0:
			return errOutOfRange
		case vOut.CanUint() && vOut.OverflowUint(uint64(n)):
			return errOutOfRange
		case vOut.CanInt() && vOut.OverflowInt(n):
			return errOutOfRange
		}
	}
	vOut.Set(vIn.Convert(f.typ))
	return nil
}
