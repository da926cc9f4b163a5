// Package webform serves the provisioning form over HTTP, the way captive
// portals on Wi-Fi sensor nodes do.
package webform

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sensornode-go/services/provision"
	"sensornode-go/x/logx"
)

var page = template.Must(template.New("form").Parse(`<!doctype html>
<html><head><title>sensor node setup</title></head><body>
<h1>Sensor node setup</h1>
{{if .Error}}<p style="color:red">{{.Error}}</p>{{end}}
<form method="post" action="/save">
<label>SSID <input name="ssid" maxlength="32" value="{{.Form.SSID}}"></label><br>
<label>Password <input name="pass" type="password" maxlength="64"></label><br>
<label>Server <input name="host" maxlength="39" value="{{.Form.Host}}"></label><br>
<label>API key <input name="apikey" maxlength="32" value="{{.Form.AccessKey}}"></label><br>
<button type="submit">Save</button>
</form></body></html>
`))

type view struct {
	Form  provision.Form
	Error string
}

type Portal struct {
	addr string
	log  *slog.Logger
	// OnListen, if set, is called with the bound address once the portal is up.
	OnListen func(net.Addr)
}

func New(addr string, log *slog.Logger) *Portal {
	return &Portal{addr: addr, log: logx.Module(log, "webform")}
}

// Collect serves the form until a valid POST /save arrives or ctx ends.
func (p *Portal) Collect(ctx context.Context, seed provision.Form) (provision.Form, error) {
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return seed, err
	}
	saved := make(chan provision.Form, 1)
	srv := &http.Server{Handler: Router(seed, saved), ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	p.log.Info("portal listening", "addr", ln.Addr().String())
	if p.OnListen != nil {
		p.OnListen(ln.Addr())
	}

	out := seed
	var rerr error
	select {
	case out = <-saved:
	case <-ctx.Done():
		rerr = ctx.Err()
	case err := <-errc:
		rerr = err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.log.Warn("portal shutdown", "err", err)
	}
	return out, rerr
}

// Router exposes the form handlers; the first valid submission is sent on saved.
func Router(seed provision.Form, saved chan<- provision.Form) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		render(w, http.StatusOK, view{Form: seed})
	}).Methods(http.MethodGet)
	r.HandleFunc("/save", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			render(w, http.StatusBadRequest, view{Form: seed, Error: err.Error()})
			return
		}
		f := provision.Form{
			SSID:       req.PostForm.Get("ssid"),
			Passphrase: req.PostForm.Get("pass"),
			Host:       req.PostForm.Get("host"),
			AccessKey:  req.PostForm.Get("apikey"),
		}
		if f.Passphrase == "" && f.SSID == seed.SSID {
			f.Passphrase = seed.Passphrase
		}
		if err := f.Validate(); err != nil {
			render(w, http.StatusBadRequest, view{Form: f, Error: err.Error()})
			return
		}
		select {
		case saved <- f:
		default:
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Saved. The node will now connect.\n"))
	}).Methods(http.MethodPost)
	// Captive-portal probes land on the form.
	r.NotFoundHandler = http.RedirectHandler("/", http.StatusFound)
	return r
}

func render(w http.ResponseWriter, code int, v view) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = page.Execute(w, v)
}
