package provision

import (
	"context"
	"log/slog"
	"net"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/services/store"
	"sensornode-go/types"
	"sensornode-go/x/logx"

	"tinygo.org/x/drivers/netlink"
)

const defaultJoinTimeout = 10 * time.Second

// Linker is the part of netlink.Netlinker provisioning needs.
type Linker interface {
	NetConnect(params *netlink.ConnectParams) error
	NetDisconnect()
	GetHardwareAddr() (net.HardwareAddr, error)
}

// CredStore persists the network identity. *store.Store satisfies it.
type CredStore interface {
	LoadLink() (store.LinkCredentials, error)
	SaveLink(store.LinkCredentials) error
}

// Form is what the operator edits: the network identity plus the two
// collector fields.
type Form struct {
	SSID       string
	Passphrase string
	Host       string
	AccessKey  string
}

func (f Form) Config() types.DeviceConfig {
	return types.DeviceConfig{Host: f.Host, AccessKey: f.AccessKey}
}

// Validate checks every field against its stored slot.
func (f Form) Validate() error {
	if len(f.SSID) > store.SSIDCap {
		return &errcode.E{C: errcode.FieldTooLong, Op: "form", Msg: "ssid"}
	}
	if len(f.Passphrase) > store.PassphraseCap {
		return &errcode.E{C: errcode.FieldTooLong, Op: "form", Msg: "passphrase"}
	}
	return f.Config().Validate()
}

// Portal presents the form and blocks until the operator saves it or ctx ends.
type Portal interface {
	Collect(ctx context.Context, seed Form) (Form, error)
}

// LinkProvisioner joins networks through a netlink device and falls back to
// a Portal, in the manner of captive-portal Wi-Fi managers.
type LinkProvisioner struct {
	link           Linker
	creds          CredStore
	portal         Portal
	connectTimeout time.Duration
	log            *slog.Logger
}

func NewLinkProvisioner(link Linker, creds CredStore, portal Portal, connectTimeout time.Duration, log *slog.Logger) *LinkProvisioner {
	if connectTimeout <= 0 {
		connectTimeout = defaultJoinTimeout
	}
	return &LinkProvisioner{link: link, creds: creds, portal: portal, connectTimeout: connectTimeout, log: logx.Module(log, "link")}
}

func (p *LinkProvisioner) Portal(ctx context.Context, seed types.DeviceConfig) (Outcome, error) {
	form := Form{Host: seed.Host, AccessKey: seed.AccessKey}
	if c, err := p.creds.LoadLink(); err == nil {
		form.SSID, form.Passphrase = c.SSID, c.Passphrase
	}
	if p.portal == nil {
		// No operator surface on this board: wait out the caller's bound.
		<-ctx.Done()
		return Outcome{Config: seed}, ctx.Err()
	}
	got, err := p.portal.Collect(ctx, form)
	if err != nil {
		return Outcome{Config: seed}, err
	}
	out := Outcome{Config: got.Config(), Submitted: true}
	if got.SSID == "" {
		return out, nil
	}
	creds := store.LinkCredentials{SSID: got.SSID, Passphrase: got.Passphrase}
	if err := p.join(ctx, creds); err != nil {
		p.log.Warn("join with submitted network failed", "ssid", got.SSID, "err", err)
		return out, nil
	}
	out.Connected = true
	if creds.SSID != form.SSID || creds.Passphrase != form.Passphrase {
		if err := p.creds.SaveLink(creds); err != nil {
			p.log.Warn("saving network identity failed", "err", err)
		}
	}
	return out, nil
}

func (p *LinkProvisioner) AutoConnect(ctx context.Context, seed types.DeviceConfig) (Outcome, error) {
	creds, err := p.creds.LoadLink()
	if err == nil && creds.SSID != "" {
		if err := p.join(ctx, creds); err == nil {
			return Outcome{Config: seed, Connected: true}, nil
		}
		p.log.Warn("stored network unavailable, opening portal", "ssid", creds.SSID, "err", err)
	} else {
		p.log.Info("no stored network, opening portal")
	}
	return p.Portal(ctx, seed)
}

// HardwareAddr exposes the link's MAC for the node identity.
func (p *LinkProvisioner) HardwareAddr() (net.HardwareAddr, error) {
	return p.link.GetHardwareAddr()
}

// join connects with one bounded attempt, never past ctx's deadline.
func (p *LinkProvisioner) join(ctx context.Context, c store.LinkCredentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := p.connectTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return errcode.Timeout
	}
	err := p.link.NetConnect(&netlink.ConnectParams{
		Ssid:           c.SSID,
		Passphrase:     c.Passphrase,
		Retries:        1,
		ConnectTimeout: timeout,
	})
	if err != nil {
		return errcode.Wrap(errcode.ProvisioningUnavailable, "link.connect", err)
	}
	p.log.Info("network joined", "ssid", c.SSID)
	return nil
}
