package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns extracts column names from struct "db" tags.
// Called once at repository construction, so reflection cost is fine.
func ExtractDBColumns[T any]() []string {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

type fieldInfo struct {
	index int
	dbTag string
}

// typeCache holds per-type field metadata so StructToMap reflects over a
// type only once.
var typeCache sync.Map // map[reflect.Type][]fieldInfo

func fieldsOf(t reflect.Type) []fieldInfo {
	if cached, ok := typeCache.Load(t); ok {
		return cached.([]fieldInfo)
	}

	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		fields = append(fields, fieldInfo{index: i, dbTag: tag})
	}
	typeCache.Store(t, fields)
	return fields
}

// StructToMap converts a struct to a column map using "db" tags.
// Fields without a tag or tagged "-" are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := fieldsOf(rv.Type())
	res := make(map[string]any, len(fields))
	for _, fi := range fields {
		res[fi.dbTag] = rv.Field(fi.index).Interface()
	}
	return res
}
