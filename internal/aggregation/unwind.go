package aggregation

func unwind(st Unwind, b *batch) *batch {
	out := &batch{
		docs:   make([]Record, 0, len(b.docs)),
		origin: make([]int, 0, len(b.docs)),
	}
	for i, doc := range b.docs {
		v, _ := Get(doc, st.Path)
		elems := Elements(v)
		if len(elems) == 0 {
			if st.PreserveEmpty {
				Delete(doc, st.Path)
				out.docs = append(out.docs, doc)
				out.origin = append(out.origin, b.origin[i])
			}
			continue
		}
		Delete(doc, st.Path)
		for j, el := range elems {
			d := doc
			if j < len(elems)-1 {
				d = Clone(doc)
			}
			Set(d, st.Path, el)
			out.docs = append(out.docs, d)
			out.origin = append(out.origin, b.origin[i])
		}
	}
	return out
}
