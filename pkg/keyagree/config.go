package keyagree

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/jabolina/go-keyagree/pkg/keyagree/definition"
	"github.com/jabolina/go-keyagree/pkg/keyagree/types"
)

// ProtocolVersion is the version this engine speaks. Kept as a string and
// parsed with hashicorp/go-version so the comparison follows semver
// ordering instead of plain string equality, matching the teacher's
// intent behind LatestProtocolVersion/ErrUnsupportedProtocol without
// hardcoding an integer.
const ProtocolVersion = "1.0.0"

// ErrUnsupportedProtocol mirrors the teacher's sentinel: returned when an
// inbound message declares a protocol version this engine cannot handle.
var ErrUnsupportedProtocol = errors.New("keyagree: protocol version not supported")

// Config wires every external collaborator the engine needs. Analogous to
// the teacher's BaseConfiguration.
type Config struct {
	// Crypto performs the five group key-agreement primitives. Required.
	Crypto types.CryptoSuite

	// Sink broadcasts outbound protocol messages. Required.
	Sink types.Sink

	// OnStepChange is invoked, fire-and-forget, whenever Step actually
	// changes. Optional.
	OnStepChange types.StepChangeFunc

	// Logger receives structural debug output and operational warnings.
	// Optional; defaults to definition.NewDefaultLogger().
	Logger types.Logger

	// ProtocolVersion overrides the default version this engine declares
	// and accepts. Optional; defaults to ProtocolVersion.
	ProtocolVersion string
}

func (c *Config) normalize() (*version.Version, error) {
	if c.Crypto == nil {
		return nil, fmt.Errorf("keyagree: Config.Crypto is required")
	}
	if c.Sink == nil {
		return nil, fmt.Errorf("keyagree: Config.Sink is required")
	}
	if c.Logger == nil {
		c.Logger = definition.NewDefaultLogger()
	}
	if c.OnStepChange == nil {
		c.OnStepChange = func(types.Step) {}
	}
	if c.ProtocolVersion == "" {
		c.ProtocolVersion = ProtocolVersion
	}
	return version.NewVersion(c.ProtocolVersion)
}
