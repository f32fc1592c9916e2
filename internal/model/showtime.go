package model

import "time"

// Showtime is one screening of a movie in a room. StartsAt is stored in UTC.
type Showtime struct {
	ID        uint64    `json:"id"`
	MovieID   uint64    `json:"movie_id"`
	RoomID    uint64    `json:"room_id"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"-"`
}

// ShowtimeDetail joins a showtime with its movie and room name.
type ShowtimeDetail struct {
	Showtime
	Movie    Movie  `json:"movie"`
	RoomName string `json:"room_name"`
}

// EndsAt is the start plus the movie's runtime, without the cleaning buffer.
func (d ShowtimeDetail) EndsAt() time.Time { return d.StartsAt.Add(d.Movie.Runtime()) }
