// Package analyzer implements the background workflow stage that decodes a
// fetched item, runs the feature extraction engine over it, and persists the
// resulting track and features into the library. Reference tracks are also
// attached to their target set and the staged audio is filed under the
// library directory.
package analyzer
