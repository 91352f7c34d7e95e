package fs

// NewCacheWithLink returns a Cache that places entries with link instead of
// os.Link.
func NewCacheWithLink(dir string, link func(oldname, newname string) error) *Cache {
	return &Cache{dir: dir, link: link}
}
