package auth

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultMaxCertificateSize is the largest NGO certificate we accept
const DefaultMaxCertificateSize int64 = 5 << 20

// CertificateFormField is the multipart field carrying the NGO certificate
const CertificateFormField = "certificate"

var certificateExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// CertificateStore saves NGO certificates on local disk
type CertificateStore struct {
	dir     string
	maxSize int64
}

// NewCertificateStore stores files under dir, created on first save
func NewCertificateStore(dir string) *CertificateStore {
	if dir == "" {
		dir = "uploads"
	}
	return &CertificateStore{dir: dir, maxSize: DefaultMaxCertificateSize}
}

func (s *CertificateStore) WithMaxSize(size int64) *CertificateStore {
	if size > 0 {
		s.maxSize = size
	}
	return s
}

// Dir is the upload directory
func (s *CertificateStore) Dir() string {
	return s.dir
}

// Save writes the uploaded file and returns its path
func (s *CertificateStore) Save(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", nil
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !certificateExtensions[ext] {
		return "", NewValidationError(CertificateFormField, "Only PDF, JPG and PNG files are allowed", fh.Filename)
	}

	if fh.Size > s.maxSize {
		return "", NewValidationError(CertificateFormField, "File too large. Maximum size is 5MB.", nil)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create upload directory")
	}

	path := filepath.Join(s.dir, CertificateFormField+"-"+uuid.NewString()+ext)
	if err := c.SaveFile(fh, path); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save certificate")
	}

	return path, nil
}

// Remove deletes a saved file. Missing files are not an error.
func (s *CertificateStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
