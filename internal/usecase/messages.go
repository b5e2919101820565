package usecase

// User-facing notification texts sent outside a direct request/response
// exchange (payment settlement, expiry sweep).
const (
	msgPaymentCanceled = "❌ Payment was canceled. You can try subscribing again from the menu."

	msgSubscriptionWarning = "⏳ Your subscription expires in 3 days. Renew it from the menu to keep access."

	msgSubscriptionExpired = "Your subscription has expired. You can renew it any time from the menu."
)
