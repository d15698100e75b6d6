package tlsca

import (
	"crypto"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// CA 一个自签名或者由上级 CA 签发的证书颁发机构，用来给客户端与服务端签发证书。
type CA struct {
	keyPair       *CertKeyPair
	securityLevel int
	keyType       string
}

func newCA(level int, keyType string) (*CA, error) {
	c := &CA{securityLevel: level, keyType: keyType}
	var err error
	c.keyPair, err = newCertKeyPair(level, keyType, true, false, nil, nil)
	if err != nil {
		return nil, errors.NewErrorf("failed generating tls CA, the error is \"%s\"", err.Error())
	}
	return c, nil
}

func (c *CA) NewIntermediateCA() (*CA, error) {
	intermediateCA := &CA{securityLevel: c.securityLevel, keyType: c.keyType}
	var err error
	intermediateCA.keyPair, err = newCertKeyPair(c.securityLevel, c.keyType, true, false, c.keyPair.Signer(), c.keyPair.X509Cert())
	if err != nil {
		return nil, errors.NewErrorf("failed generating intermediate tls CA, the error is \"%s\"", err.Error())
	}

	return intermediateCA, nil
}

func (c *CA) CertBytes() []byte {
	return c.keyPair.Cert()
}

func (c *CA) KeyBytes() []byte {
	return c.keyPair.Key()
}

func (c *CA) KeyPair() *CertKeyPair {
	return c.keyPair
}

func (c *CA) NewClientCertKeyPair() (*CertKeyPair, error) {
	return newCertKeyPair(c.securityLevel, c.keyType, false, false, c.keyPair.Signer(), c.keyPair.X509Cert())
}

func (c *CA) NewServerCertKeyPair(hosts ...string) (*CertKeyPair, error) {
	return newCertKeyPair(c.securityLevel, c.keyType, false, true, c.keyPair.Signer(), c.keyPair.X509Cert(), hosts...)
}

func (c *CA) Signer() crypto.Signer {
	return c.keyPair.Signer()
}
