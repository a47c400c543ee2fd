// Package runtime provides the execution context for podstrom commands.
//
// It encapsulates shared dependencies needed by actions, such as the object
// store, the logger, the output stream for results and the repository paths.
package runtime
