package types

import (
	"net"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/x/conv"
)

// ---- Device configuration (persisted) ----

// Field capacities, excluding the NUL terminator.
const (
	HostCap      = 39
	AccessKeyCap = 32
)

// DeviceConfig is the collector destination the node posts to.
type DeviceConfig struct {
	Host      string
	AccessKey string
}

// Validate reports FieldTooLong when a field does not fit its fixed slot.
func (c DeviceConfig) Validate() error {
	if len(c.Host) > HostCap {
		return &errcode.E{C: errcode.FieldTooLong, Op: "config", Msg: "host"}
	}
	if len(c.AccessKey) > AccessKeyCap {
		return &errcode.E{C: errcode.FieldTooLong, Op: "config", Msg: "access_key"}
	}
	return nil
}

// ---- Reading (transient) ----

type Reading struct {
	Temperature float32 // °C
	Humidity    float32 // %RH
}

// ---- Identity ----

// Identity names this node's inputs on the collector.
type Identity string

// IdentityFromMAC formats a 6-byte hardware address as 12 uppercase hex characters.
func IdentityFromMAC(mac net.HardwareAddr) (Identity, error) {
	if len(mac) != 6 {
		return "", &errcode.E{C: errcode.InvalidParams, Op: "identity", Msg: "want 6-byte mac"}
	}
	var buf [12]byte
	for i, b := range mac {
		conv.U8Hex(buf[i*2:i*2+2], b)
	}
	return Identity(buf[:]), nil
}

// ---- Cycle outcome ----

type Outcome uint8

const (
	Success Outcome = iota
	ProvisioningTimeout
	ConnectionFailed
	ServerRejected
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ProvisioningTimeout:
		return "provisioning_timeout"
	case ConnectionFailed:
		return "connection_failed"
	case ServerRejected:
		return "server_rejected"
	default:
		return "unknown"
	}
}

// ---- Cycle states ----

type State uint8

const (
	StateBoot State = iota
	StateProvision
	StateConnect
	StateTransmit
	StateDiagnose
	StateSleep
	StateFailReboot
)

func (s State) String() string {
	switch s {
	case StateBoot:
		return "boot"
	case StateProvision:
		return "provision"
	case StateConnect:
		return "connect"
	case StateTransmit:
		return "transmit"
	case StateDiagnose:
		return "diagnose"
	case StateSleep:
		return "sleep"
	case StateFailReboot:
		return "fail_reboot"
	default:
		return "unknown"
	}
}

// ---- Terminal power action ----

type ActionKind uint8

const (
	ActionSleep ActionKind = iota
	ActionReset
)

func (k ActionKind) String() string {
	if k == ActionReset {
		return "reset"
	}
	return "sleep"
}

// Action is what the cycle asks of the power controller once it ends.
type Action struct {
	Kind  ActionKind
	After time.Duration // sleep length for ActionSleep; zero for ActionReset
}

// Report summarises one boot cycle (retained on node/report).
type Report struct {
	Outcome   Outcome
	States    []State
	Reading   Reading
	Identity  Identity
	Action    Action
	Updated   bool // configuration was rewritten this boot
	Connected bool // network association confirmed by the gate
}
