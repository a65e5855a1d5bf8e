// Package checksum 解析客户端传来的校验和并在服务端复算
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Algorithm 摘要算法
type Algorithm string

const (
	MD5     Algorithm = "md5"
	SHA1    Algorithm = "sha1"
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b" // blake2b-256
)

// Default 客户端未指定时服务端记录分片用的算法
const Default = SHA256

var ErrMalformed = errors.New("checksum: malformed value")

var hexLen = map[Algorithm]int{
	MD5:     md5.Size * 2,
	SHA1:    sha1.Size * 2,
	SHA256:  sha256.Size * 2,
	BLAKE2b: blake2b.Size256 * 2,
}

// Digest 一个带算法的摘要值
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

// Parse 解析 "algo:hex" 或纯 hex。
// 纯 hex 按长度推断：32 -> md5, 40 -> sha1, 64 -> sha256
func Parse(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Digest{}, ErrMalformed
	}
	var d Digest
	if algo, value, ok := strings.Cut(s, ":"); ok {
		d = Digest{Algorithm: Algorithm(strings.ToLower(algo)), Hex: strings.ToLower(value)}
	} else {
		d.Hex = strings.ToLower(s)
		switch len(d.Hex) {
		case 32:
			d.Algorithm = MD5
		case 40:
			d.Algorithm = SHA1
		case 64:
			d.Algorithm = SHA256
		default:
			return Digest{}, fmt.Errorf("%w: cannot infer algorithm from %d hex chars", ErrMalformed, len(d.Hex))
		}
	}
	want, ok := hexLen[d.Algorithm]
	if !ok {
		return Digest{}, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformed, d.Algorithm)
	}
	if len(d.Hex) != want {
		return Digest{}, fmt.Errorf("%w: %s expects %d hex chars", ErrMalformed, d.Algorithm, want)
	}
	if _, err := hex.DecodeString(d.Hex); err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d, nil
}

// String 规范化输出 algo:hex
func (d Digest) String() string {
	return string(d.Algorithm) + ":" + d.Hex
}

// Matches 与另一个摘要比较，算法不同视为不匹配
func (d Digest) Matches(other Digest) bool {
	if d.Algorithm != other.Algorithm {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(d.Hex), []byte(other.Hex)) == 1
}

// New 创建对应算法的 hash.Hash
func New(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case BLAKE2b:
		return blake2b.New256(nil)
	}
	return nil, fmt.Errorf("checksum: unsupported algorithm %q", algo)
}

// Sum 计算 data 的摘要
func Sum(algo Algorithm, data []byte) (Digest, error) {
	h, err := New(algo)
	if err != nil {
		return Digest{}, err
	}
	h.Write(data)
	return Digest{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// Hasher 边写边算摘要，同时统计字节数
type Hasher struct {
	algo Algorithm
	h    hash.Hash
	n    int64
}

// NewHasher 创建 Hasher
func NewHasher(algo Algorithm) (*Hasher, error) {
	h, err := New(algo)
	if err != nil {
		return nil, err
	}
	return &Hasher{algo: algo, h: h}, nil
}

func (w *Hasher) Write(p []byte) (int, error) {
	n, err := w.h.Write(p)
	w.n += int64(n)
	return n, err
}

// Size 已写入的字节数
func (w *Hasher) Size() int64 {
	return w.n
}

// Digest 当前摘要
func (w *Hasher) Digest() Digest {
	return Digest{Algorithm: w.algo, Hex: hex.EncodeToString(w.h.Sum(nil))}
}

// Compute 读完 r 并返回摘要
func Compute(algo Algorithm, r io.Reader) (Digest, int64, error) {
	w, err := NewHasher(algo)
	if err != nil {
		return Digest{}, 0, err
	}
	if _, err := io.Copy(w, r); err != nil {
		return Digest{}, w.Size(), err
	}
	return w.Digest(), w.Size(), nil
}
