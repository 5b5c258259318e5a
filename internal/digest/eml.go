// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package digest

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadMessage returns the plain-text body of a digest delivered as an RFC
// 5322 message (.eml). Quoted-printable and base64 transfer encodings are
// decoded; for multipart messages the first text/plain part is used. Input
// without a valid header block is returned verbatim.
func ReadMessage(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "digest: read message")
	}

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return string(data), nil
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return "", eris.New("digest: message has no text/plain part")
			}
			if err != nil {
				return "", eris.Wrap(err, "digest: read multipart body")
			}
			ct := part.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "text/plain") {
				continue
			}
			// NextPart already strips quoted-printable; base64 is left to us.
			return decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		}
	}

	return decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
}

func decodeBody(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "digest: decode body")
	}
	return string(data), nil
}

// LoadFile reads a digest from disk. Files ending in .eml are unwrapped with
// ReadMessage; anything else is returned as-is.
func LoadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "digest: open %s", path)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".eml") {
		return ReadMessage(f)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", eris.Wrapf(err, "digest: read %s", path)
	}
	return string(data), nil
}
