// Package buildinfo holds build-time metadata injected at startup.
package buildinfo

import "github.com/google/uuid"

// UnknownValue is reported for metadata the build did not set.
const UnknownValue = "unknown"

// Context carries the version stamped by the linker and an identifier for
// this process, used to tell instances apart in telemetry and MQTT
// client ids.
type Context struct {
	version    string
	buildDate  string
	instanceID string
}

// NewContext returns build metadata for this process. An empty instanceID
// is replaced by a random one.
func NewContext(version, buildDate, instanceID string) *Context {
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	return &Context{version: version, buildDate: buildDate, instanceID: instanceID}
}

// Version returns the release version, or UnknownValue.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build timestamp, or UnknownValue.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// InstanceID returns the process identifier, or UnknownValue.
func (c *Context) InstanceID() string {
	if c == nil || c.instanceID == "" {
		return UnknownValue
	}
	return c.instanceID
}

// ShortID returns the first eight characters of the instance id.
func (c *Context) ShortID() string {
	id := c.InstanceID()
	return id[:min(8, len(id))]
}
