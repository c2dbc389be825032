package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SignInitData builds a Telegram WebApp init-data string for userID signed with botToken.
func SignInitData(botToken string, userID int64, firstName string, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", fmt.Sprintf(`{"id":%d,"first_name":%q,"language_code":"ru"}`, userID, firstName))

	return Sign(botToken, values)
}

// Sign appends the WebApp hash for values and returns the encoded query string.
func Sign(botToken string, values url.Values) string {
	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmacSHA256([]byte("WebAppData"), []byte(botToken))
	hash := hex.EncodeToString(hmacSHA256(secret, []byte(strings.Join(pairs, "\n"))))

	signed := url.Values{}
	for key := range values {
		signed.Set(key, values.Get(key))
	}
	signed.Set("hash", hash)

	return signed.Encode()
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
