package flow

// Texts collects the system notices the engine and interpreter send outside
// of scripted step content. A script file may override any of them.
type Texts struct {
	// StepNotFound prefixes the user-visible notice for a missing start/goto
	// target; the step id is appended.
	StepNotFound string
	// UseButtons is the fallback when a message matches no declared label.
	UseButtons string
	// UnknownAction is sent when an answer carries an unrecognised action.
	UnknownAction string
	// SendReceipt instructs the user to upload a payment receipt.
	SendReceipt string
	// ReceiptSent acknowledges a forwarded receipt.
	ReceiptSent string
	// ReceiptFailed tells the user the forward to the admin failed.
	ReceiptFailed string
	// AdminMissing is sent when no admin id is configured for receipts.
	AdminMissing string
	// PaymentNotice formats the admin notification: user id, order tag,
	// payment method.
	PaymentNotice string
	// ConfirmButton and DeclineButton label the admin decision controls.
	ConfirmButton string
	DeclineButton string
	// PaymentConfirmed formats the admin completion notice: user id, order tag.
	PaymentConfirmed string
	// PaymentDeclinedUser notifies the requesting user of a decline.
	PaymentDeclinedUser string
	// PaymentDeclined formats the admin decline notice: user id, order tag.
	PaymentDeclined string
	// DeliverableMissing tells the admin the confirm deliverable is absent.
	DeliverableMissing string
}

// DefaultTexts returns the built-in notice set.
func DefaultTexts() Texts {
	return Texts{
		StepNotFound:        "Step not found",
		UseButtons:          "Please use the keyboard buttons.",
		UnknownAction:       "Unknown action.",
		SendReceipt:         "Please send a photo or document with your payment receipt.",
		ReceiptSent:         "Receipt received, awaiting confirmation.",
		ReceiptFailed:       "Could not deliver your receipt, please try again later.",
		AdminMissing:        "No administrator is configured to review receipts.",
		PaymentNotice:       "Payment from user_id=%d, order=%s, method=%s",
		ConfirmButton:       "Confirm",
		DeclineButton:       "Decline",
		PaymentConfirmed:    "Confirmed for user=%d order=%s",
		PaymentDeclinedUser: "Your payment was declined.",
		PaymentDeclined:     "Declined for user=%d order=%s",
		DeliverableMissing:  "Deliverable file is missing, nothing was sent.",
	}
}
