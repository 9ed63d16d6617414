// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthPasswordReset      = "auth.password_reset"
	KeyAuthEmailVerified      = "auth.email_verified"

	// User Management
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"
	KeyUserSuspended      = "user.suspended"

	// Products
	KeyProductCreated   = "product.created"
	KeyProductUpdated   = "product.updated"
	KeyProductDeleted   = "product.deleted"
	KeyProductNotFound  = "product.not_found"
	KeyProductPublished = "product.published"

	// Purchases
	KeyPurchaseAddedToCart     = "purchase.added_to_cart"
	KeyPurchaseRemovedFromCart = "purchase.removed_from_cart"
	KeyPurchaseAlreadyInCart   = "purchase.already_in_cart"
	KeyPurchaseCompleted       = "purchase.completed"
	KeyPurchaseNotFound        = "purchase.not_found"
	KeyPurchaseFreeClaimed     = "purchase.free_claimed"

	// Payments
	KeyPaymentSuccess  = "payment.success"
	KeyPaymentFailed   = "payment.failed"
	KeyPaymentRefunded = "payment.refunded"

	// Consent enforcement
	KeyConsentStatusComplete = "consent.status_complete"
	KeyConsentNeedTeacher    = "consent.need_teacher"
	KeyConsentNeedConsent    = "consent.need_consent"
	KeyConsentGranted        = "consent.granted"
	KeyConsentRevoked        = "consent.revoked"
	KeyConsentAlreadyLinked  = "consent.already_linked"
	KeyConsentInvalidCode    = "consent.invalid_code"
	KeyConsentTeacherLinked  = "consent.teacher_linked"

	// Classrooms
	KeyClassroomCreated  = "classroom.created"
	KeyClassroomUpdated  = "classroom.updated"
	KeyClassroomNotFound = "classroom.not_found"
	KeyClassroomJoined   = "classroom.joined"
	KeyClassroomLeft     = "classroom.left"

	// Admin
	KeyAccessDenied         = "admin.access_denied"
	KeyAdminActionSuccess   = "admin.action_success"
	KeyAdminSettingsUpdated = "admin.settings_updated"

	// Files
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
