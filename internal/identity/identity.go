// Package identity derives the stable per-machine device identifier the
// cloud transport attaches to every request.
package identity

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// namespace is an arbitrary-but-fixed DNS namespace UUID used so the same
// machine-id always derives the same device id across restarts.
var namespace = uuid.NameSpaceDNS

const machineIDPath = "/etc/machine-id"

// DeviceID derives a stable device identifier from /etc/machine-id via
// UUIDv5, falling back to a fresh random UUIDv4 when the file is missing or
// empty. The latter means no stability guarantee across restarts, which
// matches the source's own fallback behavior.
func DeviceID() string {
	return DeviceIDFromPath(machineIDPath)
}

// DeviceIDFromPath is DeviceID with an overridable machine-id path, exported
// for testing.
func DeviceIDFromPath(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return uuid.NewString()
	}
	machineID := strings.TrimSpace(string(data))
	if machineID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(namespace, []byte("ym-bridge:"+machineID)).String()
}

// DeviceHeader builds the X-Yandex-Music-Device header value the cloud
// service expects, embedding deviceID with dashes stripped.
func DeviceHeader(deviceID string) string {
	stripped := strings.ReplaceAll(deviceID, "-", "")
	return "os=Linux; os_version=unknown; manufacturer=Custom; model=ym-bridge; " +
		"clid=desktop; uuid=" + stripped + "; display_size=0; dpi=96; " +
		"mcc=000; mnc=00; device_id=" + stripped
}
