package blob_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"eduplatform-backend/blob"
	"eduplatform-backend/errs"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var _ = Describe("Validate", func() {
	Specify("png avatar", func() {
		ct, err := blob.Validate(&blob.File{Name: "a.png", Data: png}, blob.Images)
		Expect(err).To(BeNil())
		Expect(ct).To(Equal("image/png"))
	})
	Specify("plain text is not an image", func() {
		_, err := blob.Validate(&blob.File{Name: "a.png", Data: []byte("hello")}, blob.Images)
		Expect(err).To(MatchError(errs.ErrUnsupportedFile))
	})
	Specify("too large", func() {
		data := append(append([]byte{}, png...), make([]byte, blob.MaxUploadSize)...)
		_, err := blob.Validate(&blob.File{Name: "a.png", Data: data}, blob.Images)
		Expect(err).To(MatchError(errs.ErrFileTooLarge))
	})
	Specify("empty", func() {
		_, err := blob.Validate(&blob.File{Name: "a.png"}, blob.Images)
		Expect(err).To(MatchError(errs.ErrBadRequest))
	})
})

var _ = Describe("NewKey", func() {
	Specify("keeps the extension", func() {
		key := blob.NewKey("avatars", "Me.PNG")
		Expect(key).To(HavePrefix("avatars/"))
		Expect(key).To(HaveSuffix(".png"))
	})
	Specify("drops directories from the name", func() {
		key := blob.NewKey("posts", "../../etc/passwd")
		Expect(strings.Count(key, "/")).To(Equal(1))
	})
})

var _ = Describe("Local", func() {
	var (
		dir string
		l   *blob.Local
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "blobs")
		Expect(err).To(BeNil())
		l, err = blob.NewLocal(dir, "http://localhost:8080/")
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	Specify("put and delete", func() {
		url, err := l.Put(context.Background(), "avatars/x.png", bytes.NewReader(png), "image/png")
		Expect(err).To(BeNil())
		Expect(url).To(Equal("http://localhost:8080/files/avatars/x.png"))

		data, err := os.ReadFile(filepath.Join(dir, "avatars", "x.png"))
		Expect(err).To(BeNil())
		Expect(data).To(Equal(png))

		Expect(l.Delete(context.Background(), "avatars/x.png")).To(Succeed())
		Expect(l.Delete(context.Background(), "avatars/x.png")).To(Succeed())
	})
	Specify("escaping keys are rejected", func() {
		_, err := l.Put(context.Background(), "../x.png", bytes.NewReader(png), "image/png")
		Expect(err).NotTo(BeNil())
	})
})
