package model

import "time"

// Questionnaire holds a client's intake answers. Each user has at most
// one questionnaire; submitting again overwrites the previous answers.
// TherapyReasons is stored as a JSON-encoded array of strings in a
// single column, so repositories marshal and unmarshal it at the edge.
//
// Fields:
//  ID                    – primary key identifier.
//  UserID                – owner of the questionnaire (unique).
//  FullName              – client's full name as entered in the form.
//  AgeRange              – age bracket label (e.g. "25-34").
//  GenderIdentity        – self-described gender identity.
//  RelationshipStatus    – relationship status label.
//  WorkOrStudy           – occupation / study situation.
//  TherapyReasons        – reasons for seeking therapy (JSON array column).
//  IssueDuration         – how long the issues have persisted.
//  AttendedTherapyBefore – whether the client has attended therapy before.
//  TherapyGoals          – free-text goals for therapy.
//  SessionPreference     – preferred session mode (online / in person).
//  PreferredDaysTimes    – free-text availability.
//  ComfortLevelSharing   – 1-10 self-rated comfort level.
//  PreferredMethods      – preferred therapy methods (nullable free text).
//  AdditionalInfo        – anything else the client wants to share (nullable).
//  CreatedAt             – creation timestamp.
//  UpdatedAt             – last update timestamp.
type Questionnaire struct {
    ID                    uint64    // questionnaires.id
    UserID                uint64    // questionnaires.user_id
    FullName              string    // questionnaires.full_name
    AgeRange              string    // questionnaires.age_range
    GenderIdentity        string    // questionnaires.gender_identity
    RelationshipStatus    string    // questionnaires.relationship_status
    WorkOrStudy           string    // questionnaires.work_or_study
    TherapyReasons        []string  // questionnaires.therapy_reasons (JSON column)
    IssueDuration         string    // questionnaires.issue_duration
    AttendedTherapyBefore bool      // questionnaires.attended_therapy_before
    TherapyGoals          string    // questionnaires.therapy_goals
    SessionPreference     string    // questionnaires.session_preference
    PreferredDaysTimes    string    // questionnaires.preferred_days_times
    ComfortLevelSharing   int       // questionnaires.comfort_level_sharing
    PreferredMethods      *string   // questionnaires.preferred_methods (nullable)
    AdditionalInfo        *string   // questionnaires.additional_info (nullable)
    CreatedAt             time.Time // questionnaires.created_at
    UpdatedAt             time.Time // questionnaires.updated_at
}
