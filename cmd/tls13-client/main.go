// Command tls13-client drives the handshake engine against a real TLS 1.3
// server over a TCP connection, for manual interop testing and as a worked
// example of the pkg/handshake API.
package main

import (
	"crypto/x509"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/jesiegel1/tls13/internal/pqlink"
	"github.com/jesiegel1/tls13/pkg/certverify"
	"github.com/jesiegel1/tls13/pkg/handshake"
	"github.com/jesiegel1/tls13/pkg/session"
	"github.com/jesiegel1/tls13/pkg/telemetry"
	"github.com/jesiegel1/tls13/pkg/transport"
	"github.com/jesiegel1/tls13/pkg/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "handshake":
		handshakeCommand(os.Args[2:])
	case "pqlink":
		pqlinkCommand()
	case "version":
		fmt.Println(version.Full())
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tls13-client - client-side TLS 1.3 handshake demo

USAGE:
    tls13-client <command> [options]

COMMANDS:
    handshake   Connect to a server and run the handshake to completion
    pqlink      Run the post-quantum KEM build-link smoke test
    version     Print version information
    help        Show this help message

EXAMPLES:
    tls13-client handshake --addr example.com:443 --server-name example.com
    tls13-client handshake --addr localhost:8443 --insecure
    tls13-client handshake --addr example.com:443 --metrics-addr localhost:9090
    tls13-client pqlink`)
}

func handshakeCommand(args []string) {
	fs := flag.NewFlagSet("handshake", flag.ExitOnError)
	addr := fs.String("addr", "localhost:443", "server address (host:port)")
	serverName := fs.String("server-name", "", "SNI / certificate verification hostname (defaults to the host in -addr)")
	insecure := fs.Bool("insecure", false, "skip server certificate verification")
	timeout := fs.Duration("timeout", 10*time.Second, "dial and handshake timeout")
	logLevel := fs.String("log-level", "info", "telemetry log level: debug, info, warn, error")
	metricsAddr := fs.String("metrics-addr", "", "if set, serve /metrics, /health, /healthz, /readyz on this address while the handshake runs")
	fs.Parse(args)

	logger := telemetry.NewLogger(
		telemetry.WithOutput(os.Stderr),
		telemetry.WithLevel(telemetry.ParseLevel(*logLevel)),
		telemetry.WithName("tls13-client"),
	)
	if telemetry.OTelEnabled() {
		telemetry.SetTracer(telemetry.NewOTelTracer("tls13-client"))
	} else {
		telemetry.SetTracer(telemetry.NewSimpleTracer())
	}
	collector := telemetry.NewCollector(telemetry.Labels{"cmd": "handshake"})
	observer := telemetry.NewHandshakeObserver(telemetry.HandshakeObserverConfig{
		Collector: collector,
		Logger:    logger,
	})

	if *metricsAddr != "" {
		srv := telemetry.NewServer(telemetry.ServerConfig{
			Collector:        collector,
			Version:          version.Full(),
			Namespace:        "tls13",
			EnablePrometheus: true,
			EnableHealth:     true,
		})
		go func() {
			if err := srv.ListenAndServe(*metricsAddr); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server on %s: %v\n", *metricsAddr, err)
			}
		}()
	}

	host := *serverName
	if host == "" {
		if h, _, err := net.SplitHostPort(*addr); err == nil {
			host = h
		} else {
			host = *addr
		}
	}

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		fatal("dial", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(*timeout))

	cfg := handshake.DefaultConfig()
	cfg.ServerName = host
	cfg.Observer = observer
	if *insecure {
		cfg.Verifier = certverify.VerifierFunc(func(rawCerts [][]byte, hostname string) (*certverify.VerifiedChain, error) {
			certs := make([]*x509.Certificate, len(rawCerts))
			for i, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return nil, err
				}
				certs[i] = cert
			}
			if len(certs) == 0 {
				return nil, fmt.Errorf("empty certificate chain")
			}
			return &certverify.VerifiedChain{Leaf: certs[0], Chain: certs}, nil
		})
	} else {
		roots, err := x509.SystemCertPool()
		if err != nil || roots == nil {
			roots = x509.NewCertPool()
		}
		cfg.Verifier = &certverify.StdlibVerifier{Roots: roots}
	}

	rl := transport.New(conn)
	h, err := handshake.New(&cfg, rl, session.NewStore(4))
	if err != nil {
		fatal("handshake.New", err)
	}

	fmt.Printf("connecting to %s (SNI %q)\n", *addr, host)
	for {
		result, err := h.Step()
		if err != nil {
			fatal(fmt.Sprintf("step in state %s", h.State()), err)
		}
		switch result {
		case handshake.ResultDone:
			sess := h.Session()
			fmt.Printf("handshake complete: cipher suite %v, alpn %q\n", sess.CipherSuite, sess.ALPN)
			snap := collector.Snapshot()
			fmt.Printf("telemetry: %+v\n", snap)
			return
		case handshake.ResultGotTicket:
			fmt.Println("received a session ticket for resumption")
		}
	}
}

func pqlinkCommand() {
	if err := pqlink.Smoke(); err != nil {
		fatal("pqlink.Smoke", err)
	}
	fmt.Println("post-quantum KEM build link OK")
}

func fatal(op string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", op, err)
	os.Exit(1)
}
