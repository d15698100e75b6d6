package tlsca

import (
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

type TLSCAGenerator struct{}

func NewTLSCAGenerator() *TLSCAGenerator {
	return &TLSCAGenerator{}
}

func (cg *TLSCAGenerator) CAGen(opts *TLSCAGenOpts) (*CA, error) {
	if opts == nil {
		return nil, errors.NewError("failed generating tls CA, nil opts")
	}
	return newCA(opts.SecurityLevel(), opts.keyType())
}
