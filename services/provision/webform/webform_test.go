package webform

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sensornode-go/services/provision"
)

func TestFormIsSeeded(t *testing.T) {
	r := Router(provision.Form{SSID: "shed", Passphrase: "secret", Host: "emon.local", AccessKey: "k1"}, make(chan provision.Form, 1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{`value="shed"`, `value="emon.local"`, `value="k1"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("form missing %s", want)
		}
	}
	if strings.Contains(body, "secret") {
		t.Fatal("passphrase rendered into the page")
	}
}

func post(r http.Handler, vals url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSaveDeliversForm(t *testing.T) {
	saved := make(chan provision.Form, 1)
	r := Router(provision.Form{SSID: "shed", Passphrase: "keepme"}, saved)
	rec := post(r, url.Values{"ssid": {"shed"}, "host": {"collector.example"}, "apikey": {"abc"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := <-saved
	want := provision.Form{SSID: "shed", Passphrase: "keepme", Host: "collector.example", AccessKey: "abc"}
	if got != want {
		t.Fatalf("form = %+v, want %+v", got, want)
	}
}

func TestSaveRejectsOverlong(t *testing.T) {
	saved := make(chan provision.Form, 1)
	rec := post(Router(provision.Form{}, saved), url.Values{"host": {strings.Repeat("h", 40)}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	select {
	case f := <-saved:
		t.Fatalf("invalid form delivered: %+v", f)
	default:
	}
}

func TestUnknownPathRedirects(t *testing.T) {
	rec := httptest.NewRecorder()
	Router(provision.Form{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate_204", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
}

func TestCollectOverHTTP(t *testing.T) {
	p := New("127.0.0.1:0", nil)
	addrs := make(chan net.Addr, 1)
	p.OnListen = func(a net.Addr) { addrs <- a }

	type res struct {
		f   provision.Form
		err error
	}
	done := make(chan res, 1)
	go func() {
		f, err := p.Collect(context.Background(), provision.Form{Host: "old"})
		done <- res{f, err}
	}()

	addr := <-addrs
	resp, err := http.PostForm("http://"+addr.String()+"/save", url.Values{"host": {"new.example"}, "apikey": {"k"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	select {
	case r := <-done:
		if r.err != nil || r.f.Host != "new.example" || r.f.AccessKey != "k" {
			t.Fatalf("Collect = %+v, %v", r.f, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Collect did not return after save")
	}
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f, err := New("127.0.0.1:0", nil).Collect(ctx, provision.Form{Host: "seed"})
	if err != context.DeadlineExceeded || f.Host != "seed" {
		t.Fatalf("Collect = %+v, %v", f, err)
	}
}
