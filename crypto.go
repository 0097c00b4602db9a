// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"fmt"
	"io"
)

// ErrInvalidPassword is returned by SetPassword when the password does
// not authenticate against the document's /Encrypt dictionary.
var ErrInvalidPassword = fmt.Errorf("encrypted PDF: invalid password")

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func toLatin1(s string) []byte {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 256 {
			b = append(b, byte(r))
		} else {
			b = append(b, '?')
		}
	}
	return b
}

// SetPassword authenticates the given password against a repaired
// encrypted document and installs the derived decryption key. An empty
// password is the common case for files encrypted only to restrict
// printing or copying. Must be called after Repair; on files without an
// /Encrypt dictionary it is a no-op.
func (d *Document) SetPassword(password string) error {
	if d.trailer == nil {
		return repairErrf(KindFormat, "document not repaired")
	}
	if d.trailer["Encrypt"] == nil {
		return nil
	}
	return d.initEncrypt(password)
}

func (d *Document) initEncrypt(password string) error {
	// See PDF 32000-1:2008, §7.6.
	encryptVal := d.resolve(objptr{}, d.trailer["Encrypt"])
	encrypt, ok := encryptVal.data.(dict)
	if !ok || len(encrypt) == 0 {
		return repairErrf(KindFormat, "cannot resolve Encrypt dictionary")
	}
	if encrypt["Filter"] != name("Standard") {
		return repairErrf(KindFormat, "unsupported encryption filter %v", objfmt(encrypt["Filter"]))
	}
	n, _ := encrypt["Length"].(int64)
	if n == 0 {
		n = 40
	}
	if n%8 != 0 || n > 128 || n < 40 {
		return repairErrf(KindFormat, "%d-bit encryption key", n)
	}
	V, _ := encrypt["V"].(int64)
	if V != 1 && V != 2 && !(V == 4 && okayV4(encrypt)) {
		return repairErrf(KindFormat, "unsupported encryption version V=%d", V)
	}

	ids, ok := d.trailer["ID"].(array)
	if !ok || len(ids) < 1 {
		return repairErrf(KindFormat, "missing ID in trailer")
	}
	idstr, ok := ids[0].(string)
	if !ok {
		return repairErrf(KindFormat, "missing ID in trailer")
	}
	ID := []byte(idstr)

	R, _ := encrypt["R"].(int64)
	if R < 2 {
		return repairErrf(KindFormat, "encryption revision R=%d", R)
	}
	if R > 4 {
		return repairErrf(KindFormat, "unsupported encryption revision R=%d", R)
	}
	O, _ := encrypt["O"].(string)
	U, _ := encrypt["U"].(string)
	if len(O) != 32 || len(U) != 32 {
		return repairErrf(KindFormat, "missing O= or U= encryption parameters")
	}
	p, _ := encrypt["P"].(int64)
	P := uint32(p)

	pw := toLatin1(password)
	h := md5.New()
	if len(pw) >= 32 {
		h.Write(pw[:32])
	} else {
		h.Write(pw)
		h.Write(passwordPad[:32-len(pw)])
	}
	h.Write([]byte(O))
	h.Write([]byte{byte(P), byte(P >> 8), byte(P >> 16), byte(P >> 24)})
	h.Write(ID)
	key := h.Sum(nil)

	if R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key[:n/8])
			key = h.Sum(key[:0])
		}
		key = key[:n/8]
	} else {
		key = key[:40/8]
	}

	c, err := rc4.NewCipher(key)
	if err != nil {
		return repairErrf(KindFormat, "invalid RC4 key: %v", err)
	}

	var u []byte
	if R == 2 {
		u = make([]byte, 32)
		copy(u, passwordPad)
		c.XORKeyStream(u, u)
	} else {
		h.Reset()
		h.Write(passwordPad)
		h.Write(ID)
		u = h.Sum(nil)
		c.XORKeyStream(u, u)

		for i := 1; i <= 19; i++ {
			key1 := make([]byte, len(key))
			copy(key1, key)
			for j := range key1 {
				key1[j] ^= byte(i)
			}
			c, _ = rc4.NewCipher(key1)
			c.XORKeyStream(u, u)
		}
	}

	if !bytes.HasPrefix([]byte(U), u) {
		return ErrInvalidPassword
	}

	d.key = key
	d.useAES = V == 4
	d.clearObjCache()
	return nil
}

func okayV4(encrypt dict) bool {
	cf, ok := encrypt["CF"].(dict)
	if !ok {
		return false
	}
	stmf, ok := encrypt["StmF"].(name)
	if !ok {
		return false
	}
	strf, ok := encrypt["StrF"].(name)
	if !ok {
		return false
	}
	if stmf != strf {
		return false
	}
	cfparam, ok := cf[stmf].(dict)
	if !ok {
		return false
	}
	if cfparam["AuthEvent"] != nil && cfparam["AuthEvent"] != name("DocOpen") {
		return false
	}
	if cfparam["Length"] != nil && cfparam["Length"] != int64(16) {
		return false
	}
	if cfparam["CFM"] != name("AESV2") {
		return false
	}
	return true
}

func cryptKey(key []byte, useAES bool, ptr objptr) []byte {
	h := md5.New()
	h.Write(key)
	h.Write([]byte{byte(ptr.id), byte(ptr.id >> 8), byte(ptr.id >> 16), byte(ptr.gen), byte(ptr.gen >> 8)})
	if useAES {
		h.Write([]byte("sAlT"))
	}
	return h.Sum(nil)
}

func decryptString(key []byte, useAES bool, ptr objptr, x string) string {
	key = cryptKey(key, useAES, ptr)
	if useAES {
		s := []byte(x)
		if len(s) < aes.BlockSize {
			return x
		}
		iv := s[:aes.BlockSize]
		data := s[aes.BlockSize:]
		if len(data) == 0 || len(data)%aes.BlockSize != 0 {
			// Not CBC-shaped; hand back the raw bytes instead of
			// guessing.
			return x
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return x
		}
		cbc := cipher.NewCBCDecrypter(block, iv)
		cbc.CryptBlocks(data, data)
		if pad := int(data[len(data)-1]); pad >= 1 && pad <= aes.BlockSize && pad <= len(data) {
			data = data[:len(data)-pad]
		}
		x = string(data)
	} else {
		c, _ := rc4.NewCipher(key)
		data := []byte(x)
		c.XORKeyStream(data, data)
		x = string(data)
	}
	return x
}

func decryptStream(key []byte, useAES bool, ptr objptr, rd io.Reader) io.Reader {
	key = cryptKey(key, useAES, ptr)
	if useAES {
		cb, err := aes.NewCipher(key)
		if err != nil {
			return &errorReader{err: fmt.Errorf("AES: %s", err.Error())}
		}
		iv := make([]byte, 16)
		if _, err := io.ReadFull(rd, iv); err != nil {
			return &errorReader{err: fmt.Errorf("failed to read AES IV: %s", err.Error())}
		}
		cbc := cipher.NewCBCDecrypter(cb, iv)
		rd = &cbcReader{cbc: cbc, rd: rd, buf: make([]byte, 16)}
	} else {
		c, _ := rc4.NewCipher(key)
		rd = &cipher.StreamReader{S: c, R: rd}
	}
	return rd
}

type cbcReader struct {
	cbc  cipher.BlockMode
	rd   io.Reader
	buf  []byte
	pend []byte
}

func (r *cbcReader) Read(b []byte) (n int, err error) {
	if len(r.pend) == 0 {
		_, err = io.ReadFull(r.rd, r.buf)
		if err != nil {
			return 0, err
		}
		r.cbc.CryptBlocks(r.buf, r.buf)
		r.pend = r.buf
	}
	n = copy(b, r.pend)
	r.pend = r.pend[n:]
	return n, nil
}
