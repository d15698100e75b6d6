package interfaces

import "hash"

/* ------------------------------------------------------------------------------------------ */

type KeyGenerator interface {
	KeyGen(opts KeyGenOpts) (Key, error)
}

type KeyImporter interface {
	KeyImport(raw interface{}, opts KeyImportOpts) (Key, error)
}

/* ------------------------------------------------------------------------------------------ */

type Hasher interface {
	Hash(msg []byte, opts HashOpts) ([]byte, error)
	GetHash(opts HashOpts) (hash.Hash, error)
}

/* ------------------------------------------------------------------------------------------ */

type Signer interface {
	Sign(key Key, msg []byte, opts SignerOpts) ([]byte, error)
}

type Verifier interface {
	Verify(key Key, signature, msg []byte, opts SignerOpts) (bool, error)
}

/* ------------------------------------------------------------------------------------------ */

type Encrypter interface {
	Encrypt(key Key, plaintext []byte, opts EncrypterOpts) ([]byte, error)
}

type Decrypter interface {
	Decrypt(key Key, ciphertext []byte, opts DecrypterOpts) ([]byte, error)
}
