package main

import (
	"os"
	"path/filepath"

	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/keystore"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/tlsca"
)

// 生成示例配置使用的 TLS 证书链，并把服务端私钥存入 keystore 目录下的文件密钥库。
func main() {
	genDir := func(dir string) {
		if err := os.MkdirAll(dir, os.FileMode(0755)); err != nil {
			panic(err)
		}
	}

	genDir("tls")
	genDir("keystore")

	genFile := func(dir, file string, content []byte, perm os.FileMode) {
		if err := os.WriteFile(filepath.Join(dir, file), content, perm); err != nil {
			panic(err)
		}
	}

	generator := tlsca.NewTLSCAGenerator()
	ca, err := generator.CAGen(&tlsca.TLSCAGenOpts{Level: 384})
	if err != nil {
		panic(err)
	}

	intermediate, err := ca.NewIntermediateCA()
	if err != nil {
		panic(err)
	}

	server, err := intermediate.NewServerCertKeyPair("localhost", "127.0.0.1")
	if err != nil {
		panic(err)
	}

	client, err := intermediate.NewClientCertKeyPair()
	if err != nil {
		panic(err)
	}

	ks, err := keystore.NewFileBasedKeyStore("keystore", nil, false)
	if err != nil {
		panic(err)
	}
	if err = ks.StoreKey(server.PrivateKey()); err != nil {
		panic(err)
	}

	genFile("tls", "ca.pem", ca.CertBytes(), 0644)
	genFile("tls", "intermediate.pem", intermediate.CertBytes(), 0644)
	genFile("tls", "server.pem", server.Cert(), 0644)
	genFile("tls", "server.key", server.Key(), 0600)
	genFile("tls", "client.pem", client.Cert(), 0644)
	genFile("tls", "client.key", client.Key(), 0600)
}
