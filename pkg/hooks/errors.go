package hooks

import (
	"fmt"

	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// ErrHookTypeEmpty is returned for a hook without a type.
var ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

// ErrUnsupportedHookEvent reports a hook type other than PostInstall.
func ErrUnsupportedHookEvent(event string) error {
	return errors.Wrapf(errors.ErrHookExecution, "unsupported hook type: %s", event)
}
