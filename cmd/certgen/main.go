// The certgen command generates the self-signed TLS material the
// counterapp service consumes: a CA, a server keypair with localhost,
// hostname, and instance-IP subject alternative names, a client keypair
// for mutual TLS callers, and a CA bundle.
package main

import (
	"crypto/x509/pkix"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/linqra/counterapp/cmd/flags"
	"github.com/linqra/counterapp/cryptoutils"
	"github.com/linqra/counterapp/registry"
)

var outDirFlag = &cli.StringFlag{
	Name:  "out-dir",
	Value: "certs",
	Usage: "directory to write the generated PEM files into",
}

var commonNameFlag = &cli.StringFlag{
	Name:  "common-name",
	Value: "counter-app",
	Usage: "common name for the server certificate",
}

var organizationFlag = &cli.StringFlag{
	Name:  "organization",
	Value: "Linqra",
	Usage: "organization for all generated subjects",
}

var validityDaysFlag = &cli.IntFlag{
	Name:  "validity-days",
	Value: 365,
	Usage: "validity of the generated certificates in days",
}

var extraHostsFlag = &cli.StringSliceFlag{
	Name:  "host",
	Usage: "additional subject alternative name for the server certificate (repeatable)",
}

func main() {
	app := &cli.App{
		Name:  "certgen",
		Usage: "Generate the CA, server, and client TLS material for counterapp",
		Flags: []cli.Flag{
			outDirFlag,
			commonNameFlag,
			organizationFlag,
			validityDaysFlag,
			extraHostsFlag,
			flags.LogJSONFlag,
			flags.LogDebugFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	outDir := cCtx.String(outDirFlag.Name)
	commonName := cCtx.String(commonNameFlag.Name)
	organization := cCtx.String(organizationFlag.Name)
	validity := time.Duration(cCtx.Int(validityDaysFlag.Name)) * 24 * time.Hour

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Error("Failed to create output directory", "err", err, "dir", outDir)
		return err
	}

	ca, err := cryptoutils.NewCertificateAuthority(pkix.Name{
		CommonName:   commonName + "-ca",
		Organization: []string{organization},
	}, validity)
	if err != nil {
		logger.Error("Failed to create certificate authority", "err", err)
		return err
	}
	logger.Info("Certificate authority created", "commonName", commonName+"-ca")

	hosts := serverHosts(logger, cCtx.StringSlice(extraHostsFlag.Name))
	logger.Info("Issuing server certificate", "hosts", hosts)
	serverCert, serverKey, err := ca.IssueServerCertificate(pkix.Name{
		CommonName:   commonName,
		Organization: []string{organization},
	}, hosts, validity)
	if err != nil {
		logger.Error("Failed to issue server certificate", "err", err)
		return err
	}

	clientCert, clientKey, err := ca.IssueClientCertificate(pkix.Name{
		CommonName:   commonName + "-client",
		Organization: []string{organization},
	}, validity)
	if err != nil {
		logger.Error("Failed to issue client certificate", "err", err)
		return err
	}

	files := map[string][]byte{
		"ca.crt":        ca.CertPEM,
		"ca.key":        ca.KeyPEM,
		"server.crt":    serverCert,
		"server.key":    serverKey,
		"client.crt":    clientCert,
		"client.key":    clientKey,
		"ca-bundle.crt": ca.CertPEM,
	}
	for name, data := range files {
		path := filepath.Join(outDir, name)
		mode := os.FileMode(0o644)
		if filepath.Ext(name) == ".key" {
			mode = 0o600
		}
		if err := os.WriteFile(path, data, mode); err != nil {
			logger.Error("Failed to write file", "err", err, "path", path)
			return err
		}
		logger.Info("Wrote", "path", path)
	}

	return nil
}

// serverHosts assembles the server certificate SANs: localhost and its
// loopback address, the machine hostname, the resolved instance IP, and
// any extra hosts from the command line.
func serverHosts(logger *slog.Logger, extra []string) []string {
	hosts := []string{"localhost", "127.0.0.1"}
	if hostname, err := os.Hostname(); err == nil {
		hosts = append(hosts, hostname)
	}
	hosts = append(hosts, registry.ResolveInstanceIP(logger))
	hosts = append(hosts, extra...)

	seen := make(map[string]bool, len(hosts))
	uniq := hosts[:0]
	for _, h := range hosts {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		uniq = append(uniq, h)
	}
	return uniq
}
