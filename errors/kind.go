package errors

import stderrors "errors"

// Kind 标识错误的类别，调用方可以通过 errors.Is 与哨兵错误比较。
type Kind int

const (
	KindUnspecified Kind = iota
	KindInvalidArgument
	KindUnknownAlgorithm
	KindAlreadyFinalized
	KindNotInitialized
	KindInvalidKeyMaterial
	KindInvalidEncoding
	KindAuthenticationFailure
	KindRangeError
	KindUnsupported
)

var kindNames = map[Kind]string{
	KindUnspecified:           "Unspecified",
	KindInvalidArgument:       "InvalidArgument",
	KindUnknownAlgorithm:      "UnknownAlgorithm",
	KindAlreadyFinalized:      "AlreadyFinalized",
	KindNotInitialized:        "NotInitialized",
	KindInvalidKeyMaterial:    "InvalidKeyMaterial",
	KindInvalidEncoding:       "InvalidEncoding",
	KindAuthenticationFailure: "AuthenticationFailure",
	KindRangeError:            "RangeError",
	KindUnsupported:           "Unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// 哨兵错误，仅用于 errors.Is 比较。
var (
	ErrInvalidArgument       = &Error{kind: KindInvalidArgument, content: "invalid argument"}
	ErrUnknownAlgorithm      = &Error{kind: KindUnknownAlgorithm, content: "unknown algorithm"}
	ErrAlreadyFinalized      = &Error{kind: KindAlreadyFinalized, content: "already finalized"}
	ErrNotInitialized        = &Error{kind: KindNotInitialized, content: "not initialized"}
	ErrInvalidKeyMaterial    = &Error{kind: KindInvalidKeyMaterial, content: "invalid key material"}
	ErrInvalidEncoding       = &Error{kind: KindInvalidEncoding, content: "invalid encoding"}
	ErrAuthenticationFailure = &Error{kind: KindAuthenticationFailure, content: "unable to authenticate data"}
	ErrRangeError            = &Error{kind: KindRangeError, content: "value out of range"}
	ErrUnsupported           = &Error{kind: KindUnsupported, content: "unsupported operation"}
)

// KindOf 返回 err 链上第一个 *Error 的类别，若不存在则返回 KindUnspecified。
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.kind
	}
	return KindUnspecified
}
