package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/icalvete/facturador/internal/httpx"
	"github.com/icalvete/facturador/internal/store"
)

// Attachment uploads are capped at 10 MiB; the desktop client only sends
// scanned documents and small PDFs.
const maxUploadSize = 10 << 20

func (h *Handler) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// The invoice must exist before anything lands on disk.
	if _, err := h.store.InvoiceByID(r.Context(), invoiceID); err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "missing_file", nil)
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	storedName := randomName() + ext
	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		h.fail(w, r, err)
		return
	}
	dstPath := filepath.Join(h.uploadsDir, storedName)
	dst, err := os.Create(dstPath)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	size, err := io.Copy(dst, file)
	dst.Close()
	if err != nil {
		os.Remove(dstPath)
		h.fail(w, r, err)
		return
	}

	att, err := h.store.AddAttachment(r.Context(), store.AttachmentInput{
		InvoiceID:    invoiceID,
		OriginalName: header.Filename,
		StoredName:   storedName,
		Path:         dstPath,
		Size:         size,
		MimeType:     header.Header.Get("Content-Type"),
		Extension:    ext,
	})
	if err != nil {
		os.Remove(dstPath)
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "attach", "invoice", invoiceID,
		fmt.Sprintf("Adjunto añadido: %s", header.Filename))
	httpx.JSON(w, http.StatusCreated, att)
}

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.store.InvoiceAttachments(r.Context(), invoiceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	att, err := h.store.AttachmentByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.OriginalName))
	http.ServeFile(w, r, att.Path)
}

// deleteAttachment removes the record first, then the file; a leftover file
// is harmless, a dangling record is not.
func (h *Handler) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	att, err := h.store.AttachmentByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteAttachment(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	if att.Path != "" {
		if err := os.Remove(att.Path); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("attachment file removal failed", "path", att.Path, "error", err)
		}
	}
	h.logActivity(r, "detach", "invoice", att.InvoiceID,
		fmt.Sprintf("Adjunto eliminado: %s", att.OriginalName))
	httpx.JSON(w, http.StatusOK, nil)
}

func randomName() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means the process is unusable
	}
	return hex.EncodeToString(buf)
}
