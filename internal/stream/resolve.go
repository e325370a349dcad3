// Package stream turns a track identifier into a time-limited, signed
// direct-audio URL via the cloud service's two-step fetch-and-sign
// protocol.
package stream

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"

	"github.com/mehroj-r/ym-bridge/internal/transport"
)

// signSalt is a fixed literal required by the cloud service's signing
// scheme; it is not a secret, just an undocumented constant.
const signSalt = "XGRlBW9FXlekgbPrRHuSiA"

// ResolveError indicates a missing download-info entry or an XML response
// missing one of the required signing fields.
type ResolveError struct {
	TrackID string
	Reason  string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("stream: resolve track %s: %s", e.TrackID, e.Reason)
}

// downloadInfo is the XML payload fetched from a variant's downloadInfoUrl.
type downloadInfo struct {
	XMLName xml.Name `xml:"download-info"`
	Host    string   `xml:"host"`
	Path    string   `xml:"path"`
	TS      string   `xml:"ts"`
	Sign    string   `xml:"s"`
}

// Resolver resolves track identifiers to playable stream URLs.
type Resolver struct {
	client *transport.Client
	http   *http.Client
}

// NewResolver builds a Resolver that issues download-info requests through
// client and the XML variant fetch through a plain http.Client (the variant
// URL is absolute and external to the configured base URL).
func NewResolver(client *transport.Client) *Resolver {
	return &Resolver{client: client, http: http.DefaultClient}
}

// Resolve returns the signed, playable MP3 URL for trackID.
func (r *Resolver) Resolve(ctx context.Context, trackID string) (string, error) {
	payload, err := r.client.RequestJSON(ctx, http.MethodGet, "/tracks/"+trackID+"/download-info", nil, nil)
	if err != nil {
		return "", err
	}

	result, ok := payload["result"].([]any)
	if !ok || len(result) == 0 {
		return "", &ResolveError{TrackID: trackID, Reason: "no download info variants"}
	}

	variantURL, err := chooseVariant(result)
	if err != nil {
		return "", &ResolveError{TrackID: trackID, Reason: err.Error()}
	}

	info, err := r.fetchDownloadInfo(ctx, variantURL)
	if err != nil {
		return "", &ResolveError{TrackID: trackID, Reason: err.Error()}
	}

	if info.Host == "" || info.Path == "" || info.TS == "" || info.Sign == "" {
		return "", &ResolveError{TrackID: trackID, Reason: "downloadInfo XML missing required fields"}
	}

	return signedURL(info), nil
}

// chooseVariant picks the first variant whose codec is mp3, falling back to
// the first variant in the list.
func chooseVariant(variants []any) (string, error) {
	var fallback map[string]any
	for _, raw := range variants {
		variant, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if fallback == nil {
			fallback = variant
		}
		if codec, _ := variant["codec"].(string); codec == "mp3" {
			return stringOrErr(variant, "downloadInfoUrl")
		}
	}
	if fallback == nil {
		return "", errors.New("no usable download info variants")
	}
	return stringOrErr(fallback, "downloadInfoUrl")
}

func stringOrErr(m map[string]any, key string) (string, error) {
	v, _ := m[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s missing", key)
	}
	return v, nil
}

func (r *Resolver) fetchDownloadInfo(ctx context.Context, variantURL string) (downloadInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, variantURL, nil)
	if err != nil {
		return downloadInfo{}, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return downloadInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return downloadInfo{}, fmt.Errorf("download info fetch status %d", resp.StatusCode)
	}

	var info downloadInfo
	if err := xml.NewDecoder(resp.Body).Decode(&info); err != nil {
		return downloadInfo{}, fmt.Errorf("decode download info xml: %w", err)
	}
	return info, nil
}

// signedURL computes https://{host}/get-mp3/{sign}/{ts}{path} where
// sign = md5_hex(signSalt + path[1:] + s). path[1:] strips the leading
// slash the XML always carries.
func signedURL(info downloadInfo) string {
	path := info.Path
	if len(path) > 0 {
		path = path[1:]
	}
	sum := md5.Sum([]byte(signSalt + path + info.Sign))
	sign := hex.EncodeToString(sum[:])
	return fmt.Sprintf("https://%s/get-mp3/%s/%s%s", info.Host, sign, info.TS, info.Path)
}
