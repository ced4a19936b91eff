package store

const schemaPostgres = `
create table if not exists users(
    id bigserial primary key,
    username text unique not null check (length(username) > 0),
    email text not null default '',
    password_hash text not null,
    created_at timestamptz not null default now()
);
create table if not exists nodes(
    id bigserial primary key,
    kind text not null check (kind in ('list','item')),
    name text not null check (length(name) > 0),
    is_checked boolean not null default false,
    parent_id bigint references nodes(id) on delete cascade,
    owner_id bigint references users(id) on delete cascade,
    pos bigint not null default 0,
    created_at timestamptz not null default now(),
    check (kind = 'list' or parent_id is not null),
    check ((parent_id is null) = (owner_id is not null))
);
create index if not exists nodes_parent_idx on nodes(parent_id, kind, pos, id);
create index if not exists nodes_owner_idx on nodes(owner_id, pos, id) where parent_id is null;
create table if not exists shares(
    root_id bigint not null references nodes(id) on delete cascade,
    user_id bigint not null references users(id) on delete cascade,
    permission text not null default 'read' check (permission in ('read','write')),
    created_at timestamptz not null default now(),
    primary key(root_id, user_id)
);
create index if not exists shares_user_idx on shares(user_id);
`

const schemaSQLite = `
create table if not exists users(
    id integer primary key autoincrement,
    username text unique not null check (length(username) > 0),
    email text not null default '',
    password_hash text not null,
    created_at text not null default current_timestamp
);
create table if not exists nodes(
    id integer primary key autoincrement,
    kind text not null check (kind in ('list','item')),
    name text not null check (length(name) > 0),
    is_checked integer not null default 0,
    parent_id integer references nodes(id) on delete cascade,
    owner_id integer references users(id) on delete cascade,
    pos integer not null default 0,
    created_at text not null default current_timestamp,
    check (kind = 'list' or parent_id is not null),
    check ((parent_id is null) = (owner_id is not null))
);
create index if not exists nodes_parent_idx on nodes(parent_id, kind, pos, id);
create index if not exists nodes_owner_idx on nodes(owner_id, pos, id) where parent_id is null;
create table if not exists shares(
    root_id integer not null references nodes(id) on delete cascade,
    user_id integer not null references users(id) on delete cascade,
    permission text not null default 'read' check (permission in ('read','write')),
    created_at text not null default current_timestamp,
    primary key(root_id, user_id)
);
create index if not exists shares_user_idx on shares(user_id);
`
