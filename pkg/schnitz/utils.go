package schnitz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// createResponse creates a StdResponse with the given body and error
func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{
			Body:  body,
			Error: &errMsg,
		}
	}
	return StdResponse[T]{
		Body:  body,
		Error: nil,
	}
}

// AuthMessage is the signed message binding a request to its target key.
func AuthMessage(target string, at time.Time) string {
	return fmt.Sprintf("%s.%d", target, at.UnixMilli())
}

// ParseAuthMessage splits a message built by AuthMessage.
func ParseAuthMessage(message string) (target string, at time.Time, err error) {
	idx := strings.LastIndexByte(message, '.')
	if idx <= 0 || idx == len(message)-1 {
		return "", time.Time{}, fmt.Errorf("malformed auth message %q", message)
	}
	millis, err := strconv.ParseInt(message[idx+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed auth timestamp: %w", err)
	}
	return message[:idx], time.UnixMilli(millis), nil
}

// GetAuth returns the verified caller credentials of a request.
func GetAuth(c *fiber.Ctx) (AuthParams, bool) {
	auth, ok := c.Locals(authLocalsKey).(AuthParams)
	return auth, ok
}
