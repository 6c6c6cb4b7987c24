package hipaa

import "fmt"

// Rekey opens ciphertext under from and seals the plaintext under to. The
// server never swaps keys while running; this is used only by the offline
// re-encryption command.
func Rekey(from, to *Vault, ciphertext []byte) ([]byte, error) {
	plaintext, err := from.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("rekey: %w", err)
	}
	out, err := to.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("rekey: %w", err)
	}
	return out, nil
}

// RekeyReport summarizes an offline re-encryption run.
type RekeyReport struct {
	Rekeyed int
	Failed  []string
	// Archived uploads, counted separately from records.
	UploadsRekeyed int
	UploadsFailed  []string
}
