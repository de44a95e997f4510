// Package tls builds the optional HTTPS configuration for the standalone server.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

// Mode describes where the serving certificate came from.
type Mode string

const (
	// ModeOff means the server speaks plain HTTP.
	ModeOff Mode = "off"
	// ModeFile means the certificate was loaded from disk.
	ModeFile Mode = "file"
	// ModeSelfSigned means the certificate was generated in memory.
	ModeSelfSigned Mode = "self-signed"
)

const selfSignedValidity = 365 * 24 * time.Hour

var defaultHosts = []string{"localhost", "127.0.0.1"}

// GenerateSelfSignedCert creates an in-memory ECDSA P-256 certificate for
// hosts, valid for one year. IP literals become IP SANs, everything else a
// DNS SAN. With no hosts it covers localhost and 127.0.0.1.
func GenerateSelfSignedCert(hosts ...string) (*tls.Certificate, error) {
	if len(hosts) == 0 {
		hosts = defaultHosts
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{CommonName: hosts[0]},
		NotBefore:             now,
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// Load returns the server TLS configuration. Files win over selfSigned;
// with neither it returns a nil config and ModeOff.
func Load(certFile, keyFile string, selfSigned bool) (*tls.Config, Mode, error) {
	var (
		cert tls.Certificate
		mode Mode
	)

	switch {
	case certFile != "" || keyFile != "":
		if certFile == "" || keyFile == "" {
			return nil, ModeOff, errors.New("both certificate and key files are required")
		}
		loaded, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, ModeOff, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		cert, mode = loaded, ModeFile

	case selfSigned:
		generated, err := GenerateSelfSignedCert()
		if err != nil {
			return nil, ModeOff, fmt.Errorf("failed to generate self-signed cert: %w", err)
		}
		cert, mode = *generated, ModeSelfSigned

	default:
		return nil, ModeOff, nil
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2", "http/1.1"},
	}, mode, nil
}
