package bootstrap

import (
	"log"

	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Room{},
		&model.RoomMember{},
		&model.RoomFavorite{},
		&model.Message{},
		&model.Vote{},
		&model.Notification{},
	)
}

// SeedDemo creates a demo user and a couple of rooms for development
// environments so the nearby-rooms endpoint has something to return.
func SeedDemo(db *gorm.DB) error {
	var user model.User
	err := db.Where("username = ?", "chatilo-demo").First(&user).Error
	if err == gorm.ErrRecordNotFound {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			Username:     "chatilo-demo",
			Email:        "demo@chatilo.local",
			PasswordHash: string(hash),
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	demos := []model.Room{
		{Name: "Neukölln Kiez", Slug: "neukoelln-kiez-demo", Latitude: 52.4811, Longitude: 13.4352, RadiusMeters: 3000, Locality: "Neukölln"},
		{Name: "Kreuzberg 36", Slug: "kreuzberg-36-demo", Latitude: 52.4996, Longitude: 13.4252, RadiusMeters: 3000, Locality: "Kreuzberg"},
	}

	for _, room := range demos {
		var count int64
		if err := db.Model(&model.Room{}).
			Where("slug = ?", room.Slug).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		room.CreatorID = user.ID
		if err := db.Create(&room).Error; err != nil {
			return err
		}
		log.Printf("seeded demo room %s", room.Name)
	}

	return nil
}
