package tlsca

import (
	"crypto"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"time"

	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/signer"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// CertKeyPair 证书与其私钥。
type CertKeyPair struct {
	cert       []byte            // x509 证书的 PEM 格式编码字节切片
	key        []byte            // 私钥的 PKCS8 PEM 格式编码字节切片
	privateKey *keys.KeyObject   // 自己的私钥，不是签发证书的机构的私钥
	signer     crypto.Signer     // privateKey 的 crypto.Signer 适配
	x509Cert   *x509.Certificate // x509 证书
	tlsCert    tls.Certificate
}

func (kp *CertKeyPair) Cert() []byte {
	return kp.cert
}

func (kp *CertKeyPair) Key() []byte {
	return kp.key
}

func (kp *CertKeyPair) PrivateKey() *keys.KeyObject {
	return kp.privateKey
}

func (kp *CertKeyPair) Signer() crypto.Signer {
	return kp.signer
}

func (kp *CertKeyPair) X509Cert() *x509.Certificate {
	return kp.x509Cert
}

func (kp *CertKeyPair) TLSCert() tls.Certificate {
	return kp.tlsCert
}

func newPrivateKey(securityLevel int, keyType string) (*keys.KeyObject, error) {
	opts := &keys.KeyPairOpts{}
	switch keyType {
	case keys.EC:
		switch securityLevel {
		case 256:
			opts.NamedCurve = "prime256v1"
		case 384:
			opts.NamedCurve = "secp384r1"
		default:
			return nil, errors.NewErrorf("invalid security level, want \"256\" or \"384\", but got \"%d\"", securityLevel)
		}
	case keys.RSA:
		switch securityLevel {
		case 256:
			opts.ModulusLength = 2048
		case 384:
			opts.ModulusLength = 3072
		default:
			return nil, errors.NewErrorf("invalid security level, want \"256\" or \"384\", but got \"%d\"", securityLevel)
		}
	case keys.Ed25519:
	default:
		return nil, errors.NewErrorf("invalid certificate key type, want \"ec\", \"rsa\" or \"ed25519\", but got \"%s\"", keyType)
	}

	pair, err := keys.GenerateKeyPair(keyType, opts)
	if err != nil {
		return nil, errors.NewErrorf("failed generating %s private key, the error is \"%s\"", keyType, err.Error())
	}
	return pair.Private, nil
}

func newCertTemplate() (x509.Certificate, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return x509.Certificate{}, errors.NewErrorf("failed generating serial number for X509 certificate template, the error is \"%s\"", err.Error())
	}

	return x509.Certificate{
		Subject:      pkix.Name{SerialNumber: serialNumber.String()},
		NotBefore:    time.Now().Add(time.Hour * (-24)),
		NotAfter:     time.Now().Add(24 * 365 * 10 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		SerialNumber: serialNumber,
	}, nil
}

func newCertKeyPair(securityLevel int, keyType string, isCA bool, isServer bool, parentSigner crypto.Signer, parent *x509.Certificate, hosts ...string) (*CertKeyPair, error) {
	privateKey, err := newPrivateKey(securityLevel, keyType)
	if err != nil {
		return nil, errors.NewErrorf("failed generating certificate key pair, the error is \"%s\"", err.Error())
	}
	keySigner, err := signer.NewSigner(privateKey)
	if err != nil {
		return nil, errors.NewErrorf("failed generating certificate key pair, the error is \"%s\"", err.Error())
	}

	template, err := newCertTemplate()
	if err != nil {
		return nil, errors.NewErrorf("failed generating certificate template for certificate key pair, the error is \"%s\"", err.Error())
	}
	if keyType == keys.RSA {
		template.KeyUsage |= x509.KeyUsageKeyEncipherment
	}

	if isCA {
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth}
		// BasicConstraintsValid 标记证书是否可以继续签发其他证书。
		template.BasicConstraintsValid = true
	} else {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}

	if isServer {
		template.ExtKeyUsage = append(template.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
		for _, host := range hosts {
			if ip := net.ParseIP(host); ip != nil {
				template.IPAddresses = append(template.IPAddresses, ip)
			} else {
				template.DNSNames = append(template.DNSNames, host)
			}
		}
	}
	template.SubjectKeyId = privateKey.SKI()

	if parent == nil || parentSigner == nil {
		// 自己给自己签署证书，一般 CA 是这么干的
		parent = &template
		parentSigner = keySigner
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, parent, keySigner.Public(), parentSigner)
	if err != nil {
		return nil, errors.NewErrorf("failed generating certificate, the error is \"%s\"", err.Error())
	}

	certRawPEM := utils.DERToPEM("CERTIFICATE", certDER)
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, errors.NewErrorf("failed generating x509 certificate, the error is \"%s\"", err.Error())
	}

	privateKeyRawPEM, err := privateKey.Export(&keys.ExportOpts{Format: keys.FormatPEM, Type: keys.EncodingPKCS8})
	if err != nil {
		return nil, errors.NewErrorf("failed exporting certificate private key, the error is \"%s\"", err.Error())
	}
	tlsCert, err := tls.X509KeyPair(certRawPEM, privateKeyRawPEM)
	if err != nil {
		return nil, errors.NewErrorf("failed generating tls certificate, the error is \"%s\"", err.Error())
	}
	return &CertKeyPair{
		key:        privateKeyRawPEM,
		cert:       certRawPEM,
		privateKey: privateKey,
		signer:     keySigner,
		x509Cert:   cert,
		tlsCert:    tlsCert,
	}, nil
}
