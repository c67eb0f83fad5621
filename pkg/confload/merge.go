package confload

// Merge folds src into dst. Nested objects merge key by key; any other
// value in src, arrays and null included, replaces what dst holds. Objects
// from src are copied, never aliased.
func Merge(dst, src map[string]any) {
	merge(dst, src, 0)
}

func merge(dst, src map[string]any, depth int) {
	for k, sv := range src {
		srcObj, srcIsObj := sv.(map[string]any)
		if !srcIsObj || depth >= maxDepth {
			dst[k] = sv
			continue
		}
		dstObj, dstIsObj := dst[k].(map[string]any)
		if !dstIsObj {
			dstObj = make(map[string]any, len(srcObj))
			dst[k] = dstObj
		}
		merge(dstObj, srcObj, depth+1)
	}
}
