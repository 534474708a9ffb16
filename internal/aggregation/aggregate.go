package aggregation

// SafeDivide returns num/den, or 0 when den is 0. Averages over empty sets
// are 0, never NaN.
func SafeDivide(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func aggregate(st Aggregate, b *batch) error {
	for _, doc := range b.docs {
		v, err := computeAggregate(st, doc)
		if err != nil {
			return err
		}
		Set(doc, st.Into, v)
	}
	return nil
}

func computeAggregate(st Aggregate, doc Record) (any, error) {
	items, err := sourceItems(doc, st.Source)
	if err != nil {
		return nil, err
	}
	switch st.Op {
	case OpCount:
		return len(items), nil
	case OpFilteredCount:
		if st.Where == nil {
			return len(items), nil
		}
		n := 0
		for _, it := range items {
			if st.Where.matches(it) {
				n++
			}
		}
		return n, nil
	case OpSum:
		return sumField(items, st.Source, st.Field)
	case OpAverage:
		total, err := sumField(items, st.Source, st.Field)
		if err != nil {
			return nil, err
		}
		return SafeDivide(total, float64(len(items))), nil
	default:
		return nil, malformed("unknown aggregate op %q", st.Op)
	}
}

func sourceItems(doc Record, path string) ([]any, error) {
	v, ok := Get(doc, path)
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := asSlice(v)
	if !ok {
		return nil, malformed("%s is %T, not an array", path, v)
	}
	return items, nil
}

// sumField adds the numeric field of every element. Missing and null values
// contribute nothing; any other non-numeric value is malformed.
func sumField(items []any, source, field string) (float64, error) {
	var total float64
	for _, it := range items {
		v := it
		if field != "" {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			got, ok := Get(m, field)
			if !ok {
				continue
			}
			v = got
		}
		if v == nil {
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			return 0, malformed("%s.%s holds non-numeric %T", source, field, v)
		}
		total += f
	}
	return total, nil
}

func (p Predicate) matches(it any) bool {
	m, ok := it.(map[string]any)
	if !ok {
		return false
	}
	v, found := Get(m, p.Field)
	if p.Equals == nil {
		return !found || v == nil
	}
	return found && Equal(v, p.Equals)
}
