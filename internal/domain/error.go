package domain

import "errors"

var (
	// ErrInvalidTrigger indicates a trigger without a name or fire time.
	ErrInvalidTrigger = errors.New("trigger requires a name and a fire time")

	// ErrInvalidKind indicates a kind other than ADHAN or ALARM.
	ErrInvalidKind = errors.New("kind must be ADHAN or ALARM")

	// ErrPersistence indicates the trigger or preference store failed.
	ErrPersistence = errors.New("persistence failure")

	// ErrPermissionDenied indicates exact wake-ups are not authorized.
	ErrPermissionDenied = errors.New("exact wake-up permission denied")

	// ErrRegistryClosed indicates the wake-up registrar has shut down.
	ErrRegistryClosed = errors.New("wake-up registry is closed")

	// ErrSoundUnavailable indicates no playable source could be resolved.
	ErrSoundUnavailable = errors.New("sound unavailable")

	// ErrAudioDevice indicates the decoder could not be opened or started.
	ErrAudioDevice = errors.New("audio device failure")

	// ErrVolumeRestore is logged when the original stream volume could not be restored.
	ErrVolumeRestore = errors.New("volume restore failure")

	// ErrWakeLockRelease is logged when the wake-lock could not be released.
	ErrWakeLockRelease = errors.New("wake-lock release failure")

	// ErrNotFound indicates an unknown trigger name.
	ErrNotFound = errors.New("trigger not found")
)
