package ports

// Opener hands a file to an external program
type Opener interface {
	// OpenFile opens the file at path, which must be absolute
	OpenFile(path string) error
}
