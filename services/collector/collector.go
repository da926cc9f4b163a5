// Package collector is a development stand-in for an emoncms input API.
// It accepts GET /input/post.json, answers "ok" and exports what it
// received as Prometheus gauges.
package collector

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sensornode-go/errcode"
	"sensornode-go/x/logx"
	"sensornode-go/x/strconvx"
)

type Collector struct {
	apiKey string
	log    *slog.Logger

	reg    *prometheus.Registry
	values *prometheus.GaugeVec
	seen   *prometheus.GaugeVec
	posts  *prometheus.CounterVec

	mu   sync.Mutex
	last map[string]float64
}

// New returns a collector that accepts apiKey; an empty key accepts any.
func New(apiKey string, log *slog.Logger) *Collector {
	c := &Collector{
		apiKey: apiKey,
		log:    logx.Module(log, "collector"),
		reg:    prometheus.NewRegistry(),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sensornode",
			Subsystem: "input",
			Name:      "value",
			Help:      "Last value posted for an input",
		}, []string{"node", "input"}),
		seen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sensornode",
			Subsystem: "input",
			Name:      "last_post_timestamp_seconds",
			Help:      "Unix time of the last post for an input",
		}, []string{"node", "input"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensornode",
			Subsystem: "collector",
			Name:      "posts_total",
			Help:      "Posts received by result",
		}, []string{"result"}),
		last: make(map[string]float64),
	}
	c.reg.MustRegister(c.values, c.seen, c.posts)
	return c
}

func (c *Collector) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(c.logRequests)
	r.HandleFunc("/input/post.json", c.post).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/input/post", c.post).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
	return r
}

func (c *Collector) post(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if c.apiKey != "" && q.Get("apikey") != c.apiKey {
		c.posts.WithLabelValues("unauthorized").Inc()
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
		return
	}
	node := q.Get("node")
	if node == "" {
		node = "0"
	}
	vals, err := ParseFragment(q.Get("json"))
	if err != nil {
		c.posts.WithLabelValues("bad_format").Inc()
		c.log.Warn("rejected post", "node", node, "err", err)
		http.Error(w, "Format error, json string supplied is not valid", http.StatusBadRequest)
		return
	}

	now := float64(time.Now().Unix())
	c.mu.Lock()
	for k, v := range vals {
		c.values.WithLabelValues(node, k).Set(v)
		c.seen.WithLabelValues(node, k).Set(now)
		c.last[node+"/"+k] = v
	}
	c.mu.Unlock()
	c.posts.WithLabelValues("ok").Inc()
	c.log.Info("post", "node", node, "inputs", len(vals))

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

// Last returns the most recent value for node/input.
func (c *Collector) Last(node, input string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.last[node+"/"+input]
	return v, ok
}

func (c *Collector) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.log.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "took", time.Since(start))
	})
}

// ParseFragment reads the emoncms "fulljson-lite" form {key:value,...}.
// Keys are unquoted; quotes around keys or values are tolerated.
func ParseFragment(s string) (map[string]float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "collector.parse", Msg: "want {key:value,...}"}
	}
	out := make(map[string]float64)
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return out, nil
	}
	for _, pair := range strings.Split(body, ",") {
		k, v, ok := strings.Cut(pair, ":")
		k = strings.Trim(strings.TrimSpace(k), `"`)
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if !ok || k == "" {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "collector.parse", Msg: "pair " + pair}
		}
		f, err := strconvx.ParseFloat(v, 64)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidParams, "collector.parse", err)
		}
		out[k] = f
	}
	return out, nil
}
