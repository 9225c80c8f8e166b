//go:build !amd64

package shabal

// PreferredWidth reports the lane width used for batched hashing. Only
// x86-64 gets the wide paths; everything else takes the scalar core.
func PreferredWidth() (int, string) {
	return 1, "scalar"
}
