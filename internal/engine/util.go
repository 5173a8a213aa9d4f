package engine

import (
	"errors"

	"github.com/mmynk/sususave/internal/storage"
)

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func memberKey(memberID, groupID string) string {
	return "member:" + memberID + "|group:" + groupID
}

func groupKey(groupID string) string {
	return "group:" + groupID
}
