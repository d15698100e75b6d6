package tlsca

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

func TestLoadCert(t *testing.T) {
	for _, keyType := range []string{keys.EC, keys.RSA, keys.Ed25519} {
		kp, err := newCertKeyPair(256, keyType, false, false, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, kp)

		tlsCertPair, err := tls.X509KeyPair(kp.Cert(), kp.Key())
		require.NoError(t, err)
		require.NotNil(t, tlsCertPair)

		block, _ := pem.Decode(kp.Cert())
		cert, err := x509.ParseCertificate(block.Bytes)
		require.NoError(t, err)
		require.Equal(t, kp.PrivateKey().SKI(), cert.SubjectKeyId)

		// 证书可以作为公钥导入，并与私钥配对。
		pub, err := keys.ParsePublicKey(kp.Cert())
		require.NoError(t, err)
		derived, err := keys.CreatePublicKey(kp.PrivateKey())
		require.NoError(t, err)
		require.True(t, pub.Equals(derived))
	}

	_, err := newCertKeyPair(512, keys.EC, false, false, nil, nil)
	require.Error(t, err)
	_, err = newCertKeyPair(256, keys.DSA, false, false, nil, nil)
	require.Error(t, err)
}

func TestIntermediateCA(t *testing.T) {
	root, err := NewTLSCAGenerator().CAGen(&TLSCAGenOpts{Level: 384})
	require.NoError(t, err)
	intermediate, err := root.NewIntermediateCA()
	require.NoError(t, err)
	leaf, err := intermediate.NewServerCertKeyPair("localhost", "127.0.0.1")
	require.NoError(t, err)

	roots := x509.NewCertPool()
	roots.AddCert(root.KeyPair().X509Cert())
	inter := x509.NewCertPool()
	inter.AddCert(intermediate.KeyPair().X509Cert())
	_, err = leaf.X509Cert().Verify(x509.VerifyOptions{Roots: roots, Intermediates: inter, DNSName: "localhost"})
	require.NoError(t, err)

	// 证书中的公钥可以验证证书私钥产生的签名。
	sig, err := sign.SignMessage("sha384", []byte("payload"), leaf.PrivateKey(), nil)
	require.NoError(t, err)
	ok, err := sign.VerifyWithMaterial("sha384", []byte("payload"), leaf.Cert(), sig, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = NewTLSCAGenerator().CAGen(nil)
	require.Error(t, err)
}

func createTLSService(t *testing.T, ca *CA, host string) *grpc.Server {
	keyPair, err := ca.NewServerCertKeyPair(host)
	require.NoError(t, err)
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{keyPair.TLSCert()},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    x509.NewCertPool(),
	}
	tlsConf.ClientCAs.AppendCertsFromPEM(ca.CertBytes())
	return grpc.NewServer(grpc.Creds(credentials.NewTLS(tlsConf)))
}

func TestTLSCA(t *testing.T) {
	ca, err := newCA(256, keys.EC)
	require.NoError(t, err)
	require.NotNil(t, ca)

	srv := createTLSService(t, ca, "127.0.0.1")
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(listener)
	defer srv.Stop()
	defer listener.Close()

	probeTLS := func(kp *CertKeyPair) error {
		tlsCfg := &tls.Config{
			RootCAs:      x509.NewCertPool(),
			Certificates: []tls.Certificate{kp.TLSCert()},
		}
		tlsCfg.RootCAs.AppendCertsFromPEM(ca.CertBytes())
		tlsOpts := grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		conn, err := grpc.DialContext(ctx, listener.Addr().String(), tlsOpts, grpc.WithBlock())
		if err != nil {
			return err
		}
		conn.Close()
		return nil
	}

	kp, err := ca.NewClientCertKeyPair()
	require.NoError(t, err)
	err = probeTLS(kp)
	require.NoError(t, err)

	foreignCA, _ := newCA(256, keys.EC)
	kp, err = foreignCA.NewClientCertKeyPair()
	require.NoError(t, err)
	err = probeTLS(kp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "context deadline exceeded")
}
