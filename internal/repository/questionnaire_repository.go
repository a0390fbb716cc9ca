package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/amanicare/therapy-booking/internal/model"
)

// ErrQuestionnaireNotFound is returned when a user has not submitted
// an intake questionnaire yet.
var ErrQuestionnaireNotFound = errors.New("questionnaire not found")

// QuestionnaireRepo persists intake questionnaires. TherapyReasons is
// serialized to a JSON array column, so marshalling happens here at the
// storage edge and the rest of the code sees a plain string slice.
type QuestionnaireRepo struct{ db *sql.DB }

func NewQuestionnaireRepo(db *sql.DB) *QuestionnaireRepo { return &QuestionnaireRepo{db: db} }

const questionnaireCols = "id,user_id,full_name,age_range,gender_identity,relationship_status,work_or_study," +
	"therapy_reasons,issue_duration,attended_therapy_before,therapy_goals,session_preference," +
	"preferred_days_times,comfort_level_sharing,preferred_methods,additional_info,created_at,updated_at"

func scanQuestionnaire(row interface{ Scan(...interface{}) error }) (model.Questionnaire, error) {
	var q model.Questionnaire
	var reasons []byte
	err := row.Scan(&q.ID, &q.UserID, &q.FullName, &q.AgeRange, &q.GenderIdentity, &q.RelationshipStatus,
		&q.WorkOrStudy, &reasons, &q.IssueDuration, &q.AttendedTherapyBefore, &q.TherapyGoals,
		&q.SessionPreference, &q.PreferredDaysTimes, &q.ComfortLevelSharing, &q.PreferredMethods,
		&q.AdditionalInfo, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	if len(reasons) > 0 {
		_ = json.Unmarshal(reasons, &q.TherapyReasons)
	}
	return q, nil
}

// Upsert inserts the user's questionnaire or replaces the previous
// answers when one already exists (one questionnaire per user).
func (r *QuestionnaireRepo) Upsert(ctx context.Context, q model.Questionnaire) (uint64, error) {
	reasons, err := json.Marshal(q.TherapyReasons)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO questionnaires
		   (user_id, full_name, age_range, gender_identity, relationship_status, work_or_study,
		    therapy_reasons, issue_duration, attended_therapy_before, therapy_goals,
		    session_preference, preferred_days_times, comfort_level_sharing, preferred_methods, additional_info)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   full_name=VALUES(full_name), age_range=VALUES(age_range), gender_identity=VALUES(gender_identity),
		   relationship_status=VALUES(relationship_status), work_or_study=VALUES(work_or_study),
		   therapy_reasons=VALUES(therapy_reasons), issue_duration=VALUES(issue_duration),
		   attended_therapy_before=VALUES(attended_therapy_before), therapy_goals=VALUES(therapy_goals),
		   session_preference=VALUES(session_preference), preferred_days_times=VALUES(preferred_days_times),
		   comfort_level_sharing=VALUES(comfort_level_sharing), preferred_methods=VALUES(preferred_methods),
		   additional_info=VALUES(additional_info)`,
		q.UserID, q.FullName, q.AgeRange, q.GenderIdentity, q.RelationshipStatus, q.WorkOrStudy,
		reasons, q.IssueDuration, q.AttendedTherapyBefore, q.TherapyGoals,
		q.SessionPreference, q.PreferredDaysTimes, q.ComfortLevelSharing, q.PreferredMethods, q.AdditionalInfo)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return uint64(id), nil
}

// GetByUser fetches the questionnaire submitted by a user.
func (r *QuestionnaireRepo) GetByUser(ctx context.Context, userID uint64) (model.Questionnaire, error) {
	q, err := scanQuestionnaire(r.db.QueryRowContext(ctx,
		"SELECT "+questionnaireCols+" FROM questionnaires WHERE user_id=? LIMIT 1", userID))
	if err == sql.ErrNoRows {
		return q, ErrQuestionnaireNotFound
	}
	return q, err
}

// GetByID fetches a questionnaire by id. Admin only.
func (r *QuestionnaireRepo) GetByID(ctx context.Context, id uint64) (model.Questionnaire, error) {
	q, err := scanQuestionnaire(r.db.QueryRowContext(ctx,
		"SELECT "+questionnaireCols+" FROM questionnaires WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return q, ErrQuestionnaireNotFound
	}
	return q, err
}

// ListAll returns every questionnaire, newest first. Admin only.
func (r *QuestionnaireRepo) ListAll(ctx context.Context) ([]model.Questionnaire, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+questionnaireCols+" FROM questionnaires ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
