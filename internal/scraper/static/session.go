package static

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// storedCookie is the persisted shape of one session cookie.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// serializeCookies captures the jar's cookies for the site into a blob
// suitable for SessionState.
func serializeCookies(jar http.CookieJar, base *url.URL) ([]byte, error) {
	cookies := jar.Cookies(base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
	return json.Marshal(stored)
}

// restoreCookies loads a previously serialized blob into the jar.
func restoreCookies(jar http.CookieJar, base *url.URL, blob []byte) error {
	var stored []storedCookie
	if err := json.Unmarshal(blob, &stored); err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
	jar.SetCookies(base, cookies)
	return nil
}
