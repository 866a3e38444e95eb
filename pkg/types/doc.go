// Package types defines the Store and Databank interfaces, the generation
// and attribute kinds of a versioned databank index, and the standard error
// types shared by the storage backends and the flat-file indexers.
package types
