package app

import (
	"context"
	"fmt"
	"log"

	"github.com/hungpv1995/community-board/internal/models"
	"github.com/hungpv1995/community-board/internal/repository"
)

// Fixtures are the sample posts written by the seed command.
var Fixtures = []models.CreatePostRequest{
	{Title: "제주도 3박 4일 여행 후기", Content: "협재 해변과 우도가 정말 좋았어요. 렌터카는 꼭 미리 예약하세요.", Category: "여행", Author: "여행러버"},
	{Title: "부산 해운대 맛집 추천", Content: "해운대 시장 안쪽 국밥집이 현지인 추천 맛집입니다.", Category: "여행", Author: "부산토박이"},
	{Title: "강아지 산책 시간은 얼마나 필요할까요?", Content: "소형견 기준 하루 30분씩 두 번이면 충분하다고 합니다.", Category: "동물/반려동물", Author: "멍멍이아빠"},
	{Title: "고양이 털 관리 팁", Content: "장모종은 매일 빗질을 해주면 헤어볼이 확실히 줄어요.", Category: "동물/반려동물", Author: "냥집사"},
	{Title: "초보자를 위한 3분할 운동 루틴", Content: "가슴/삼두, 등/이두, 하체/어깨로 나누어 주 6회 진행합니다.", Category: "건강/헬스", Author: "헬린이"},
	{Title: "아침 공복 유산소 효과 있나요?", Content: "체지방 감량에는 총 섭취 칼로리 관리가 더 중요하다고 해요.", Category: "건강/헬스", Author: "런닝맨"},
	{Title: "이번 주 음악방송 1위 정리", Content: "컴백 첫 주에 바로 1위를 차지한 그룹이 화제입니다.", Category: "연예인", Author: "덕질중"},
	{Title: "드라마 촬영지 투어 다녀왔어요", Content: "드라마 속 카페가 실제로 영업 중이라 들러 봤습니다.", Category: "연예인", Author: "드라마광"},
}

// PostWriter creates posts.
type PostWriter interface {
	CreatePostWithTransaction(ctx context.Context, req *models.CreatePostRequest, authorID string) (*models.Post, error)
}

// PostIndexer writes a post to the search index.
type PostIndexer interface {
	IndexPost(ctx context.Context, post *models.Post) error
}

// Seed writes the fixture posts and returns what was created.
func Seed(ctx context.Context, repo PostWriter, fixtures []models.CreatePostRequest) ([]*models.Post, error) {
	created := make([]*models.Post, 0, len(fixtures))
	for i := range fixtures {
		req := fixtures[i]
		post, err := repo.CreatePostWithTransaction(ctx, &req, "")
		if err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", req.Title, err)
		}
		created = append(created, post)
	}
	log.Printf("Seeded %d posts", len(created))
	return created, nil
}

// Reindex writes every non-deleted post to the search index. It keeps going
// past individual failures and reports how many were indexed.
func Reindex(ctx context.Context, repo *repository.PostRepository, index PostIndexer) (int, error) {
	posts, err := repo.ListPosts(ctx, "")
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, post := range posts {
		if err := index.IndexPost(ctx, post); err != nil {
			log.Printf("Failed to index post %s: %v", post.ID, err)
			continue
		}
		indexed++
	}
	log.Printf("Reindexed %d of %d posts", indexed, len(posts))
	if indexed < len(posts) {
		return indexed, fmt.Errorf("failed to index %d posts", len(posts)-indexed)
	}
	return indexed, nil
}
