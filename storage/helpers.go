package storage

import "context"

// scrollPageSize is the page size used by the helpers below.
const scrollPageSize = 256

// Exists reports whether any point in collection matches filter.
func Exists(ctx context.Context, store VectorStore, collection string, filter *Filter) (bool, error) {
	page, err := store.Scroll(ctx, collection, filter, 1, "")
	if err != nil {
		return false, err
	}
	return len(page.Points) > 0, nil
}

// ScrollAll follows the scroll cursor until every matching point is read.
func ScrollAll(ctx context.Context, store VectorStore, collection string, filter *Filter) ([]Point, error) {
	var out []Point
	offset := ""
	for {
		page, err := store.Scroll(ctx, collection, filter, scrollPageSize, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Points...)
		if page.Next == "" {
			return out, nil
		}
		offset = page.Next
	}
}

// DeleteWhere removes every point matching filter and returns how many were removed.
func DeleteWhere(ctx context.Context, store VectorStore, collection string, filter *Filter) (int, error) {
	points, err := ScrollAll(ctx, store, collection, filter)
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}
	if err := store.Delete(ctx, collection, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}
