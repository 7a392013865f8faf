package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
)

const (
	maxDumpDepth    = 10
	maxDumpElements = 10
)

// Dump logs the contents of v at Debug level, one line per field, map entry or
// element. Exported struct fields are walked recursively; slices and arrays
// are cut after the first few elements and cycles are reported rather than
// followed. Every line carries the location of the Dump call.
func (l *Logger) Dump(v interface{}) {
	if !l.Enabled(emptyString, LevelDebug) {
		return
	}

	site := callSite{}
	if _, file, line, ok := runtime.Caller(1); ok {
		site.file, site.line = filepath.Base(file), line
	}

	d := dumper{logger: l, site: site, visited: make(map[uintptr]bool)}
	if v == nil {
		d.printf("Dump: <nil>")
		return
	}
	d.value(v, emptyString, 0)
}

type dumper struct {
	logger  *Logger
	site    callSite
	visited map[uintptr]bool
}

func (d *dumper) printf(format string, args ...interface{}) {
	d.logger.emit(context.Background(), emptyString, LevelDebug, d.site, fmt.Sprintf(format, args...), nil)
}

func (d *dumper) value(v interface{}, prefix string, depth int) {
	if depth > maxDumpDepth {
		d.printf("%s: <max depth reached>", prefix)
		return
	}
	if v == nil {
		d.printf("%s: <nil>", prefix)
		return
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			d.printf("%s: <nil>", prefix)
			return
		}
		if val.Kind() == reflect.Ptr {
			ptr := val.Pointer()
			if d.visited[ptr] {
				d.printf("%s: <circular reference>", prefix)
				return
			}
			d.visited[ptr] = true
		}
		val = val.Elem()
	}

	typ := val.Type()
	switch val.Kind() {
	case reflect.Struct:
		if prefix == emptyString {
			d.printf("Struct: %s", typ.Name())
		} else {
			d.printf("%s: %s {", prefix, typ.Name())
		}
		for i := 0; i < val.NumField(); i++ {
			fv := val.Field(i)
			if !fv.CanInterface() {
				continue
			}
			name := typ.Field(i).Name
			if prefix != emptyString {
				name = prefix + "." + name
			}
			d.value(fv.Interface(), name, depth+1)
		}
		if prefix != emptyString {
			d.printf("%s: }", prefix)
		}

	case reflect.Map:
		d.printf("%s: map[%s]%s (len: %d) {", prefix, typ.Key(), typ.Elem(), val.Len())
		iter := val.MapRange()
		for iter.Next() {
			d.value(iter.Value().Interface(), fmt.Sprintf("%s[%v]", prefix, iter.Key().Interface()), depth+1)
		}
		d.printf("%s: }", prefix)

	case reflect.Slice, reflect.Array:
		d.printf("%s: %s (len: %d, cap: %d) {", prefix, typ, val.Len(), val.Cap())
		for i := 0; i < val.Len() && i < maxDumpElements; i++ {
			d.value(val.Index(i).Interface(), fmt.Sprintf("%s[%d]", prefix, i), depth+1)
		}
		if val.Len() > maxDumpElements {
			d.printf("%s: ... (%d more elements)", prefix, val.Len()-maxDumpElements)
		}
		d.printf("%s: }", prefix)

	default:
		d.printf("%s: %v", prefix, val.Interface())
	}
}
