package aggregation

// SensitiveFields never leave the executor, at any depth.
var SensitiveFields = []string{"password", "password_hash", "refresh_token", "refreshToken"}

func project(st Project, b *batch) {
	for i, doc := range b.docs {
		b.docs[i] = reshape(st, doc)
	}
}

func reshape(st Project, doc Record) Record {
	out := doc
	if len(st.Include) > 0 {
		out = Record{}
		if !excludes(st.Exclude, "_id") && !includesAs(st.Include, "_id") {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		for _, f := range st.Include {
			from := f.From
			if from == "" {
				from = f.As
			}
			v, ok := Get(doc, from)
			if !ok {
				continue
			}
			if f.Index != nil {
				if v, ok = elemAt(v, *f.Index); !ok {
					continue
				}
			}
			Set(out, f.As, v)
		}
	}
	for _, path := range st.Exclude {
		Delete(out, path)
	}
	StripSensitive(out)
	return out
}

func elemAt(v any, index int) (any, bool) {
	items, ok := asSlice(v)
	if !ok {
		return nil, false
	}
	if index < 0 {
		index += len(items)
	}
	if index < 0 || index >= len(items) {
		return nil, false
	}
	return items[index], true
}

// StripSensitive removes SensitiveFields from v and everything nested in it.
func StripSensitive(v any) {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range SensitiveFields {
			delete(t, k)
		}
		for _, inner := range t {
			StripSensitive(inner)
		}
	case []any:
		for _, inner := range t {
			StripSensitive(inner)
		}
	default:
		if items, ok := asSlice(v); ok {
			for _, inner := range items {
				StripSensitive(inner)
			}
		}
	}
}

func excludes(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

func includesAs(fields []Field, as string) bool {
	for _, f := range fields {
		if f.As == as {
			return true
		}
	}
	return false
}
