package ledger

// Pure precondition checks shared by the pathway store and token registry.
// All checks are total and side-effect-free; a failed check means the
// operation returns without touching any record.

// maxURIChars bounds the off-ledger content pointer on issued tokens.
const maxURIChars = 2048

// validateAgentPair rejects self-pathways and zero identities.
func validateAgentPair(source, target ID) error {
	if source.IsZero() || target.IsZero() {
		return newError(CodeInvalidAgent, "zero agent identity")
	}
	if source == target {
		return newError(CodeInvalidAgent, "source and target agents are identical")
	}
	return nil
}

// validateEligibility surfaces the external ledger's storage attestation
// as a typed precondition.
func validateEligibility(storageEligible bool) error {
	if !storageEligible {
		return newError(CodeNotRentExempt, "backing account does not meet the minimum-balance requirement")
	}
	return nil
}

// validateMintOwner rejects zero mint or owner identities on issuance.
func validateMintOwner(mint, owner ID) error {
	if mint.IsZero() {
		return newError(CodeInvalidAgent, "zero mint identity")
	}
	if owner.IsZero() {
		return newError(CodeInvalidAgent, "zero owner identity")
	}
	return nil
}

// validateURI bounds the token URI length.
func validateURI(uri string) error {
	if len(uri) > maxURIChars {
		return newError(CodeInvalidInstruction, "uri too long (%d chars, max %d)", len(uri), maxURIChars)
	}
	return nil
}
