package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNotLoggedIn = errors.New("not logged in; run `tasksync login` first")

type invalidIDError struct {
	raw string
}

func (e invalidIDError) Error() string {
	return fmt.Sprintf("invalid task id: %q (expected a positive integer)", e.raw)
}

func parseTaskID(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidIDError{raw: s}
	}
	return id, nil
}

type missingFlagError struct {
	flag string
}

func (e missingFlagError) Error() string {
	return fmt.Sprintf("missing --%s", e.flag)
}
