package primitives

import (
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/allisson/hybridkem/internal/crypto/domain"
)

// Scheme is the KEM surface the hybrid engine and key lifecycle depend on.
// Encapsulate/Decapsulate inherit ML-KEM's implicit-rejection property
// directly from CIRCL: Decapsulate never errors on a bad ciphertext, it
// returns the pseudorandom rejection value FIPS 203 specifies. The AEAD
// tag check downstream is the real authentication gate.
type Scheme interface {
	Preset() domain.Preset
	PublicKeySize() int
	SecretKeySize() int
	CiphertextSize() int
	SharedSecretSize() int
	Generate() (publicKey, secretKey []byte, err error)
	Encapsulate(publicKey []byte) (sharedSecret, ciphertext []byte, err error)
	Decapsulate(secretKey, ciphertext []byte) (sharedSecret []byte, err error)
}

// SchemeFor returns the KEM implementation a preset selects.
func SchemeFor(preset domain.Preset) (Scheme, error) {
	switch preset {
	case domain.PresetNormal:
		return mlkem768Scheme{}, nil
	case domain.PresetHighSecurity:
		return mlkem1024Scheme{}, nil
	default:
		return nil, domain.NewError(domain.KindConfiguration, "SchemeFor", preset, domain.ErrUnknownPreset)
	}
}

type mlkem768Scheme struct{}

func (mlkem768Scheme) Preset() domain.Preset  { return domain.PresetNormal }
func (mlkem768Scheme) PublicKeySize() int     { return mlkem768.PublicKeySize }
func (mlkem768Scheme) SecretKeySize() int     { return mlkem768.PrivateKeySize }
func (mlkem768Scheme) CiphertextSize() int    { return mlkem768.CiphertextSize }
func (mlkem768Scheme) SharedSecretSize() int  { return mlkem768.SharedKeySize }

func (s mlkem768Scheme) Generate() (publicKey, secretKey []byte, err error) {
	pk, sk, err := mlkem768.GenerateKeyPair(cryptoRandReader{})
	if err != nil {
		return nil, nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem768.Generate", s.Preset(), err)
	}
	pub := make([]byte, mlkem768.PublicKeySize)
	pk.Pack(pub)
	sec := make([]byte, mlkem768.PrivateKeySize)
	sk.Pack(sec)
	return pub, sec, nil
}

func (s mlkem768Scheme) Encapsulate(publicKey []byte) (sharedSecret, ciphertext []byte, err error) {
	if len(publicKey) != mlkem768.PublicKeySize {
		return nil, nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem768.Encapsulate", s.Preset(), domain.ErrInvalidKeySize)
	}
	pk := new(mlkem768.PublicKey)
	pk.Unpack(publicKey)

	seed := make([]byte, mlkem768.EncapsulationSeedSize)
	if err := randomFill(seed); err != nil {
		return nil, nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem768.Encapsulate", s.Preset(), err)
	}

	ct := make([]byte, mlkem768.CiphertextSize)
	ss := make([]byte, mlkem768.SharedKeySize)
	pk.EncapsulateTo(ct, ss, seed)
	return ss, ct, nil
}

func (s mlkem768Scheme) Decapsulate(secretKey, ciphertext []byte) (sharedSecret []byte, err error) {
	if len(secretKey) != mlkem768.PrivateKeySize {
		return nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem768.Decapsulate", s.Preset(), domain.ErrInvalidKeySize)
	}
	if len(ciphertext) != mlkem768.CiphertextSize {
		return nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem768.Decapsulate", s.Preset(), domain.ErrInvalidCiphertext)
	}
	sk := new(mlkem768.PrivateKey)
	sk.Unpack(secretKey)

	ss := make([]byte, mlkem768.SharedKeySize)
	sk.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

type mlkem1024Scheme struct{}

func (mlkem1024Scheme) Preset() domain.Preset  { return domain.PresetHighSecurity }
func (mlkem1024Scheme) PublicKeySize() int     { return mlkem1024.PublicKeySize }
func (mlkem1024Scheme) SecretKeySize() int     { return mlkem1024.PrivateKeySize }
func (mlkem1024Scheme) CiphertextSize() int    { return mlkem1024.CiphertextSize }
func (mlkem1024Scheme) SharedSecretSize() int  { return mlkem1024.SharedKeySize }

func (s mlkem1024Scheme) Generate() (publicKey, secretKey []byte, err error) {
	pk, sk, err := mlkem1024.GenerateKeyPair(cryptoRandReader{})
	if err != nil {
		return nil, nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem1024.Generate", s.Preset(), err)
	}
	pub := make([]byte, mlkem1024.PublicKeySize)
	pk.Pack(pub)
	sec := make([]byte, mlkem1024.PrivateKeySize)
	sk.Pack(sec)
	return pub, sec, nil
}

func (s mlkem1024Scheme) Encapsulate(publicKey []byte) (sharedSecret, ciphertext []byte, err error) {
	if len(publicKey) != mlkem1024.PublicKeySize {
		return nil, nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem1024.Encapsulate", s.Preset(), domain.ErrInvalidKeySize)
	}
	pk := new(mlkem1024.PublicKey)
	pk.Unpack(publicKey)

	seed := make([]byte, mlkem1024.EncapsulationSeedSize)
	if err := randomFill(seed); err != nil {
		return nil, nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem1024.Encapsulate", s.Preset(), err)
	}

	ct := make([]byte, mlkem1024.CiphertextSize)
	ss := make([]byte, mlkem1024.SharedKeySize)
	pk.EncapsulateTo(ct, ss, seed)
	return ss, ct, nil
}

func (s mlkem1024Scheme) Decapsulate(secretKey, ciphertext []byte) (sharedSecret []byte, err error) {
	if len(secretKey) != mlkem1024.PrivateKeySize {
		return nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem1024.Decapsulate", s.Preset(), domain.ErrInvalidKeySize)
	}
	if len(ciphertext) != mlkem1024.CiphertextSize {
		return nil, domain.NewError(domain.KindAlgorithmAsymmetric, "mlkem1024.Decapsulate", s.Preset(), domain.ErrInvalidCiphertext)
	}
	sk := new(mlkem1024.PrivateKey)
	sk.Unpack(secretKey)

	ss := make([]byte, mlkem1024.SharedKeySize)
	sk.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

// cryptoRandReader adapts crypto/rand.Reader to the io.Reader CIRCL expects,
// kept as a named type so Generate's randomness source is explicit.
type cryptoRandReader struct{}

func (cryptoRandReader) Read(p []byte) (int, error) {
	return randReader().Read(p)
}

var _ io.Reader = cryptoRandReader{}
