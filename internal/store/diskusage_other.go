//go:build !unix

package store

import "errors"

// fsQuota is unavailable on this platform; the storage estimate degrades to
// the database size only.
func fsQuota(dir string) (int64, error) {
	return 0, errors.New("quota reporting not supported")
}
