package authRepository

const (
	queryGetActiveTemplates = `
SELECT pattern_id, card_type, is_active, fields, geometric_hints, confidence_threshold, description, created_at
FROM card_templates
    WHERE is_active = TRUE
ORDER BY created_at, pattern_id`

	queryCreateEnrollment = `
INSERT INTO enrollment_records (employee_id, face_id, enrollment_date, thumbnail_s3_key, is_active, re_enrollment_count, face_data)
VALUES (:employee_id, :face_id, :enrollment_date, :thumbnail_s3_key, :is_active, :re_enrollment_count, :face_data)
ON CONFLICT (employee_id) DO NOTHING`

	queryGetEnrollmentByEmployeeID = `
SELECT employee_id, face_id, enrollment_date, last_login, thumbnail_s3_key, is_active, re_enrollment_count, face_data
FROM enrollment_records
    WHERE employee_id = :employee_id`

	queryUpdateEnrollment = `
UPDATE enrollment_records
SET face_id = :face_id,
    thumbnail_s3_key = :thumbnail_s3_key,
    face_data = :face_data,
    re_enrollment_count = re_enrollment_count + 1
WHERE employee_id = :employee_id AND is_active = TRUE`

	queryUpdateLastLogin = `
UPDATE enrollment_records
SET last_login = :last_login
WHERE employee_id = :employee_id`

	querySetEnrollmentActive = `
UPDATE enrollment_records
SET is_active = :is_active
WHERE employee_id = :employee_id`

	queryCreateAuthSession = `
INSERT INTO auth_sessions (session_id, employee_id, auth_method, created_at, expires_at, access_token, ip_address, user_agent)
VALUES (:session_id, :employee_id, :auth_method, :created_at, :expires_at, :access_token, :ip_address, :user_agent)`

	queryGetAuthSession = `
SELECT session_id, employee_id, auth_method, created_at, expires_at, access_token, ip_address, user_agent
FROM auth_sessions
    WHERE session_id = :session_id AND expires_at > NOW()`

	queryDeleteAuthSession = `
DELETE FROM auth_sessions
WHERE session_id = :session_id`

	queryDeleteExpiredAuthSessions = `
DELETE FROM auth_sessions
WHERE expires_at <= NOW()`

	queryCreateLivenessSession = `
INSERT INTO liveness_sessions (session_id, employee_id, status, created_at, expires_at)
VALUES (:session_id, :employee_id, :status, :created_at, :expires_at)`

	queryGetLivenessSession = `
SELECT session_id, employee_id, status, confidence, reference_image_s3_key, created_at, expires_at
FROM liveness_sessions
    WHERE session_id = :session_id`

	queryRecordLivenessResult = `
UPDATE liveness_sessions
SET status = :status,
    confidence = :confidence,
    reference_image_s3_key = :reference_image_s3_key
WHERE session_id = :session_id AND status = 'pending'`

	queryMarkLivenessExpired = `
UPDATE liveness_sessions
SET status = 'expired'
WHERE session_id = :session_id AND status <> 'expired'`
)
