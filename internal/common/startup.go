package common

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/sandboxbench/internal/common/config"
	"github.com/armadaproject/sandboxbench/internal/common/health"
	"github.com/armadaproject/sandboxbench/internal/common/logging"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. SANDBOXBENCH_METRICSPORT=9000.
const EnvPrefix = "SANDBOXBENCH"

// LoadConfig reads config.yaml from defaultPath, merges the optional user supplied
// file on top, applies environment and command line overrides and decodes the
// result into config. Fields of config absent from every source keep their value.
func LoadConfig(config interface{}, defaultPath string, overrideConfig string, flags *pflag.FlagSet) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Errorf("Error reading base config path=%s: %v", defaultPath, err)
			os.Exit(-1)
		}
		log.Warnf("No base config found in %s, relying on defaults", defaultPath)
	} else {
		log.Infof("Read base config from %s", v.ConfigFileUsed())
	}

	if overrideConfig != "" {
		v.SetConfigFile(overrideConfig)
		if err := v.MergeInConfig(); err != nil {
			log.Errorf("Error reading config from %s: %v", overrideConfig, err)
			os.Exit(-1)
		}
		log.Infof("Read config from %s", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			log.Error(err)
			os.Exit(-1)
		}
	}

	if err := v.Unmarshal(config, commonconfig.CustomHooks...); err != nil {
		log.Error(err)
		os.Exit(-1)
	}
}

func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// ConfigureLogMetrics counts log lines by level into reg.
func ConfigureLogMetrics(reg prometheus.Registerer) {
	log.AddHook(logging.NewPrometheusHook(reg))
}

// NewMetricsServer returns a server exposing the metrics gathered by gatherer on /metrics
// and, if checker is non-nil, a health endpoint on /health.
func NewMetricsServer(port uint16, gatherer prometheus.Gatherer, checker health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if checker != nil {
		health.SetupHttpMux(mux, checker)
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ServeHttp serves srv until ctx is done and then shuts it down. It returns early if the
// server fails, e.g. because its port is taken.
func ServeHttp(ctx context.Context, srv *http.Server) error {
	failed := make(chan error, 1)
	go func() {
		log.Printf("Starting http server listening on %s", srv.Addr)
		failed <- srv.ListenAndServe()
	}()

	select {
	case err := <-failed:
		return errors.Wrapf(err, "http server on %s failed", srv.Addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Printf("Stopping http server listening on %s", srv.Addr)
	return errors.WithStack(srv.Shutdown(shutdownCtx))
}
