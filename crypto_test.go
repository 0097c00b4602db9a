// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"crypto/md5"
	"crypto/rc4"
	"fmt"
	"testing"
)

// buildRC4File composes a V=1 R=2 standard-security file whose object
// 4 holds /S encrypted for the empty user password, together with the
// derived file key, so tests can authenticate against it.
func buildRC4File(t *testing.T, plain string) (string, []byte) {
	t.Helper()

	O := make([]byte, 32)
	for i := range O {
		O[i] = byte(i + 1)
	}
	ID := make([]byte, 16)
	for i := range ID {
		ID[i] = byte(0xA0 + i)
	}
	// P = -1: all permissions granted, little-endian on the wire.
	h := md5.New()
	h.Write(passwordPad)
	h.Write(O)
	h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	h.Write(ID)
	key := h.Sum(nil)[:5]

	U := make([]byte, 32)
	copy(U, passwordPad)
	c, err := rc4.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	c.XORKeyStream(U, U)

	sk := cryptKey(key, false, objptr{4, 0})
	c, err = rc4.NewCipher(sk)
	if err != nil {
		t.Fatal(err)
	}
	cipher := []byte(plain)
	c.XORKeyStream(cipher, cipher)

	data := fmt.Sprintf("%%PDF-1.4\n"+
		"1 0 obj << /Type /Catalog >> endobj\n"+
		"4 0 obj << /S <%x> >> endobj\n"+
		"5 0 obj << /Filter /Standard /V 1 /R 2 /Length 40 /P -1 /O <%x> /U <%x> >> endobj\n"+
		"trailer << /Root 1 0 R /Encrypt 5 0 R /ID [<%x> <%x>] >>\n",
		cipher, O, U, ID, ID)
	return data, key
}

func TestSetPassword(t *testing.T) {
	data, key := buildRC4File(t, "top secret")
	d := repairDoc(t, data)

	if err := d.SetPassword(""); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if got := fmt.Sprintf("%x", d.key); got != fmt.Sprintf("%x", key) {
		t.Errorf("derived key = %s, want %s", got, fmt.Sprintf("%x", key))
	}
	if got := d.Object(4).Key("S").RawString(); got != "top secret" {
		t.Errorf("decrypted string = %q, want %q", got, "top secret")
	}
}

func TestSetPasswordWrong(t *testing.T) {
	data, _ := buildRC4File(t, "x")
	d := repairDoc(t, data)

	if err := d.SetPassword("not the password"); err != ErrInvalidPassword {
		t.Fatalf("SetPassword = %v, want ErrInvalidPassword", err)
	}
	if d.key != nil {
		t.Error("key installed despite failed authentication")
	}
}

func TestSetPasswordUnencrypted(t *testing.T) {
	d := repairDoc(t, "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n")
	if err := d.SetPassword(""); err != nil {
		t.Errorf("SetPassword on unencrypted file = %v, want nil", err)
	}
}

func TestSetPasswordBeforeRepair(t *testing.T) {
	d := NewDocument(nil, 0)
	if err := d.SetPassword(""); err == nil {
		t.Error("SetPassword before repair succeeded")
	}
}
