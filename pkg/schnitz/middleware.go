package schnitz

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/pkg/signature"
)

var defaultWhitelist = []string{"/health"}

// ZstdMiddleware decompresses zstd request bodies and compresses responses
// for callers accepting zstd.
func ZstdMiddleware(whitelistedRoutes []string) fiber.Handler {
	if whitelistedRoutes == nil {
		whitelistedRoutes = defaultWhitelist
	}

	// EncodeAll and DecodeAll are safe for concurrent use.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create zstd decoder")
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create zstd encoder")
	}

	return func(c *fiber.Ctx) error {
		if slices.Contains(whitelistedRoutes, c.Path()) {
			return c.Next()
		}

		if strings.EqualFold(c.Get(fiber.HeaderContentEncoding), "zstd") {
			body := c.Request().Body()
			if len(body) > 0 {
				decompressed, err := decoder.DecodeAll(body, nil)
				if err != nil {
					log.Err(err).Msg("Failed to decompress request")
					return c.Status(fiber.StatusBadRequest).JSON(
						createResponse(map[string]any{}, fmt.Errorf("failed to decompress zstd data: %w", err)))
				}
				c.Request().SetBody(decompressed)
			}
			c.Request().Header.Del(fiber.HeaderContentEncoding)
		}

		if err := c.Next(); err != nil {
			return err
		}

		if strings.Contains(strings.ToLower(c.Get(fiber.HeaderAcceptEncoding)), "zstd") {
			responseBody := c.Response().Body()
			if len(responseBody) > 0 {
				compressed := encoder.EncodeAll(responseBody, nil)
				c.Response().SetBody(compressed)
				c.Set(fiber.HeaderContentEncoding, "zstd")
				c.Set(fiber.HeaderContentLength, strconv.Itoa(len(compressed)))

				log.Trace().
					Int("original_size", len(responseBody)).
					Int("compressed_size", len(compressed)).
					Msg("Response body compressed")
			}
		}

		return nil
	}
}

// SignatureMiddleware verifies the caller signature headers. When selfKey is
// set the signed message must target it, and when maxAge is positive the
// message must be recent.
func SignatureMiddleware(
	signatureVerifier signature.SignatureVerifier,
	whitelistedRoutes []string,
	selfKey string,
	maxAge time.Duration,
) fiber.Handler {
	if whitelistedRoutes == nil {
		whitelistedRoutes = defaultWhitelist
	}

	reject := func(c *fiber.Ctx, status int, msg string) error {
		return c.Status(status).JSON(createResponse(map[string]any{}, fmt.Errorf("%s", msg)))
	}

	return func(c *fiber.Ctx) error {
		if slices.Contains(whitelistedRoutes, c.Path()) {
			return c.Next()
		}

		sig := c.Get(SignatureHeader)
		hotkey := c.Get(HotkeyHeader)
		message := c.Get(MessageHeader)

		if hotkey == "" || sig == "" || message == "" {
			return reject(c, fiber.StatusBadRequest, fmt.Sprintf("%s, missing headers, expected: %s, %s, %s",
				http.StatusText(http.StatusBadRequest), SignatureHeader, HotkeyHeader, MessageHeader))
		}

		target, signedAt, err := ParseAuthMessage(message)
		if err != nil {
			return reject(c, fiber.StatusBadRequest, err.Error())
		}
		if selfKey != "" && target != selfKey {
			log.Warn().Str("hotkey", hotkey).Str("target", target).Msg("Request addressed to another key")
			return reject(c, fiber.StatusForbidden,
				fmt.Sprintf("%s: request addressed to %s", http.StatusText(http.StatusForbidden), target))
		}
		if maxAge > 0 && time.Since(signedAt) > maxAge {
			return reject(c, fiber.StatusForbidden,
				fmt.Sprintf("%s: auth message expired", http.StatusText(http.StatusForbidden)))
		}

		ok, err := signatureVerifier.Verify(message, sig, hotkey)
		if err != nil {
			return reject(c, fiber.StatusForbidden, fmt.Sprintf("signature verification error: %s", err.Error()))
		}
		if !ok {
			return reject(c, fiber.StatusForbidden,
				fmt.Sprintf("%s due to invalid signature", http.StatusText(http.StatusForbidden)))
		}

		log.Debug().Str("hotkey", hotkey).Str("path", c.Path()).Msg("Verified signature successfully")
		c.Locals(authLocalsKey, AuthParams{Hotkey: hotkey, Message: message, Signature: sig})

		return c.Next()
	}
}
