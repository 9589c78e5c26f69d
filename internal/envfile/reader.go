package envfile

import (
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/allisson/configvault/internal/errors"
)

// Rotation replaces the encrypted artifact with a rename, so a reader racing
// a rotation can observe the file missing for an instant. ReadEncrypted
// retries that one condition with exponential backoff instead of failing
// hard; every other error is returned immediately.
const (
	readRetryInitialInterval = 10 * time.Millisecond
	readRetryMaxElapsed      = 2 * time.Second
)

// ReadEncrypted reads the encrypted artifact at path, tolerating the
// transient missing-file window of a concurrent rotation's rename step.
func ReadEncrypted(path string) ([]byte, error) {
	var data []byte

	operation := func() error {
		var err error
		data, err = os.ReadFile(path)
		if err == nil {
			return nil
		}
		if os.IsNotExist(err) {
			// Likely mid-rename; retry.
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = readRetryInitialInterval
	policy.MaxElapsedTime = readRetryMaxElapsed

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, apperrors.Wrapf(err, "read encrypted artifact %s", path)
	}
	return data, nil
}
