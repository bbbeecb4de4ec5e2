//go:generate mockgen -destination=./mocks/manager.go -package=mocks . Manager

package download

import "context"

// Manager downloads one catalog dependency into the temp directory and
// returns the verified scratch file path.
type Manager interface {
	Download(ctx context.Context, depID string, useMirror bool) (string, error)
}
